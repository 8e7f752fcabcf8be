package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/config"
	"github.com/Xushengqwer/game_offers/internal/models"
)

const testTopic = "catalog.offer.changed"

type fakeInvalidator struct {
	mu       sync.Mutex
	prefixes []string
	failures int
}

func (f *fakeInvalidator) InvalidatePrefix(_ context.Context, prefix string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("redis: i/o timeout")
	}
	f.prefixes = append(f.prefixes, prefix)
	return 1, nil
}

func (f *fakeInvalidator) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prefixes...)
}

type fakeSession struct {
	ctx     context.Context
	mu      sync.Mutex
	marked  []int64
	commits int
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "member-1" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }
func (s *fakeSession) Commit()                                  { s.mu.Lock(); s.commits++; s.mu.Unlock() }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, msg.Offset)
	s.mu.Unlock()
}

type fakeClaim struct {
	msgs chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return testTopic }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.msgs }

func newClaim(msgs ...*sarama.ConsumerMessage) *fakeClaim {
	c := &fakeClaim{msgs: make(chan *sarama.ConsumerMessage, len(msgs))}
	for _, m := range msgs {
		c.msgs <- m
	}
	close(c.msgs)
	return c
}

func eventMessage(t *testing.T, offset int64, e models.OfferChangedEvent) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(e)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: testTopic, Offset: offset, Key: []byte(e.Namespace), Value: b}
}

func testPaths() InvalidationPaths {
	return InvalidationPaths{Search: "/search", Tags: "/tags", Freebies: "/free-games"}
}

func newTestHandler(inv CacheInvalidator, producer sarama.SyncProducer, maxRetries uint64) *Handler {
	svc := NewEventService(inv, testPaths(), zap.NewNop())
	h := NewHandler(svc, producer, "catalog.offer.changed.dlq", []string{testTopic}, zap.NewNop(), maxRetries)
	h.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return h
}

func producerConfig(t *testing.T) *sarama.Config {
	t.Helper()
	cfg, err := ConfigureSarama(config.KafkaConfig{KafkaVersion: "2.8.0", DLQ: config.DLQConfig{Acks: "all"}}, zap.NewNop())
	require.NoError(t, err)
	return cfg
}

func TestAffectedPrefixes(t *testing.T) {
	svc := NewEventService(&fakeInvalidator{}, testPaths(), zap.NewNop())
	tests := []struct {
		name  string
		event models.OfferChangedEvent
		want  []string
	}{
		{"price change", models.OfferChangedEvent{Operation: models.OfferOperationPriceChanged}, []string{"/search"}},
		{"upsert", models.OfferChangedEvent{Operation: models.OfferOperationUpsert}, []string{"/search", "/tags"}},
		{"freebie upsert", models.OfferChangedEvent{Operation: models.OfferOperationUpsert, Freebie: true}, []string{"/search", "/free-games", "/tags"}},
		{"delete", models.OfferChangedEvent{Operation: models.OfferOperationDelete}, []string{"/search", "/free-games", "/tags"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.affectedPrefixes(tt.event))
		})
	}
}

func TestHandleOfferChangedRejectsInvalidEvent(t *testing.T) {
	inv := &fakeInvalidator{}
	svc := NewEventService(inv, testPaths(), zap.NewNop())
	err := svc.HandleOfferChanged(context.Background(), models.OfferChangedEvent{Operation: "rename", OfferID: "o1", Namespace: "ns"})
	assert.ErrorIs(t, err, ErrInvalidEventFormat)
	assert.Empty(t, inv.seen())
}

func TestConsumeClaimInvalidatesAndCommits(t *testing.T) {
	inv := &fakeInvalidator{}
	h := newTestHandler(inv, nil, 3)
	session := &fakeSession{ctx: context.Background()}

	msg := eventMessage(t, 7, models.OfferChangedEvent{
		EventID: "e1", Operation: models.OfferOperationPriceChanged, OfferID: "o1", Namespace: "ns1", ChangedAt: time.Now(),
	})
	require.NoError(t, h.ConsumeClaim(session, newClaim(msg)))

	assert.Equal(t, []string{"/search"}, inv.seen())
	assert.Equal(t, []int64{7}, session.marked)
	assert.Equal(t, 1, session.commits)
}

func TestTransientFailuresAreRetried(t *testing.T) {
	inv := &fakeInvalidator{failures: 2}
	h := newTestHandler(inv, nil, 3)
	session := &fakeSession{ctx: context.Background()}

	msg := eventMessage(t, 1, models.OfferChangedEvent{EventID: "e2", Operation: models.OfferOperationPriceChanged, OfferID: "o2", Namespace: "ns2"})
	require.NoError(t, h.ConsumeClaim(session, newClaim(msg)))

	assert.Equal(t, []string{"/search"}, inv.seen())
	assert.Equal(t, []int64{1}, session.marked)
}

func TestMalformedMessageGoesToDLQWithoutRetry(t *testing.T) {
	producer := mocks.NewSyncProducer(t, producerConfig(t))
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != "{not json" {
			return errors.New("unexpected DLQ payload: " + string(val))
		}
		return nil
	})
	defer func() { assert.NoError(t, producer.Close()) }()

	inv := &fakeInvalidator{}
	h := newTestHandler(inv, producer, 5)
	session := &fakeSession{ctx: context.Background()}

	bad := &sarama.ConsumerMessage{Topic: testTopic, Offset: 3, Value: []byte("{not json")}
	require.NoError(t, h.ConsumeClaim(session, newClaim(bad)))

	assert.Empty(t, inv.seen())
	assert.Equal(t, []int64{3}, session.marked)
}

func TestExhaustedRetriesGoToDLQ(t *testing.T) {
	producer := mocks.NewSyncProducer(t, producerConfig(t))
	producer.ExpectSendMessageAndSucceed()
	defer func() { assert.NoError(t, producer.Close()) }()

	inv := &fakeInvalidator{failures: 10}
	h := newTestHandler(inv, producer, 2)
	session := &fakeSession{ctx: context.Background()}

	msg := eventMessage(t, 4, models.OfferChangedEvent{EventID: "e3", Operation: models.OfferOperationDelete, OfferID: "o3", Namespace: "ns3"})
	require.NoError(t, h.ConsumeClaim(session, newClaim(msg)))

	inv.mu.Lock()
	remaining := inv.failures
	inv.mu.Unlock()
	assert.Equal(t, 7, remaining, "one attempt plus two retries")
	assert.Equal(t, []int64{4}, session.marked)
}

func TestUnknownTopicIsSkipped(t *testing.T) {
	inv := &fakeInvalidator{}
	h := newTestHandler(inv, nil, 1)
	session := &fakeSession{ctx: context.Background()}

	msg := &sarama.ConsumerMessage{Topic: "other.topic", Offset: 9, Value: []byte(`{}`)}
	require.NoError(t, h.ConsumeClaim(session, newClaim(msg)))
	assert.Empty(t, inv.seen())
	assert.Equal(t, []int64{9}, session.marked)
}

func TestSetupClosesReadyOnce(t *testing.T) {
	h := newTestHandler(&fakeInvalidator{}, nil, 1)
	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.Setup(session))
	require.NoError(t, h.Setup(session))
	select {
	case <-h.Ready():
	default:
		t.Fatal("ready channel not closed")
	}
}

func TestSendToDLQWithoutProducer(t *testing.T) {
	err := SendToDLQ(context.Background(), nil, "dlq", &sarama.ConsumerMessage{Topic: testTopic}, errors.New("boom"), zap.NewNop())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "未配置"))
}

func TestConfigureSaramaRejectsBadVersion(t *testing.T) {
	_, err := ConfigureSarama(config.KafkaConfig{KafkaVersion: "not-a-version"}, zap.NewNop())
	assert.Error(t, err)

	cfg, err := ConfigureSarama(config.KafkaConfig{AutoOffsetReset: "earliest", SessionTimeout: 45 * time.Second, DLQ: config.DLQConfig{Acks: "1"}}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, sarama.OffsetOldest, cfg.Consumer.Offsets.Initial)
	assert.Equal(t, sarama.WaitForLocal, cfg.Producer.RequiredAcks)
	assert.Equal(t, 45*time.Second, cfg.Consumer.Group.Session.Timeout)
	assert.False(t, cfg.Consumer.Offsets.AutoCommit.Enable)
}
