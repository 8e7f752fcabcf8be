package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/internal/models"
)

// dlqSendTimeout 单条死信消息的发送超时。
const dlqSendTimeout = 10 * time.Second

// MessageHandlerFunc 处理单条消息。
type MessageHandlerFunc func(ctx context.Context, message *sarama.ConsumerMessage) error

// Handler 实现 sarama.ConsumerGroupHandler：按主题路由消息，
// 对临时性错误做指数退避重试，最终失败的消息转入 DLQ。
type Handler struct {
	eventService   *EventService
	dlqProducer    sarama.SyncProducer
	dlqTopic       string
	maxRetry       uint64
	topicToHandler map[string]MessageHandlerFunc
	ready          chan bool
	logger         *zap.Logger
	newBackOff     func() backoff.BackOff
}

// NewHandler 为每个订阅的主题注册目录变更事件处理函数。
func NewHandler(eventSvc *EventService, producer sarama.SyncProducer, dlqTopic string, topics []string, logger *zap.Logger, maxRetries uint64) *Handler {
	if logger == nil {
		panic("致命错误 [Kafka Handler]: Logger 实例不能为 nil")
	}
	if eventSvc == nil {
		panic("致命错误 [Kafka Handler]: EventService 实例不能为 nil")
	}
	if producer == nil && dlqTopic != "" {
		logger.Warn("DLQ 主题已配置，但 DLQ 生产者未提供", zap.String("dlq_topic", dlqTopic))
	}

	h := &Handler{
		eventService:   eventSvc,
		dlqProducer:    producer,
		dlqTopic:       dlqTopic,
		maxRetry:       maxRetries,
		topicToHandler: make(map[string]MessageHandlerFunc, len(topics)),
		ready:          make(chan bool),
		logger:         logger,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = 0
			return bo
		},
	}
	for _, topic := range topics {
		h.topicToHandler[topic] = h.handleOfferChanged
	}

	logger.Info("Kafka Handler 初始化完成",
		zap.Strings("topics", topics),
		zap.Uint64("max_processing_retries", maxRetries),
		zap.Bool("dlq_producer_configured", producer != nil),
		zap.String("dlq_topic", dlqTopic),
	)
	return h
}

// Ready 在首次 Setup 完成后关闭。
func (h *Handler) Ready() <-chan bool {
	return h.ready
}

// Setup 会话开始时调用，发出就绪信号。重平衡后可能被再次调用。
func (h *Handler) Setup(session sarama.ConsumerGroupSession) error {
	select {
	case <-h.ready:
	default:
		close(h.ready)
	}
	h.logger.Info("Kafka Handler Setup 完成", zap.String("member_id", session.MemberID()))
	return nil
}

// Cleanup 会话结束时调用。
func (h *Handler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.logger.Info("Kafka Handler Cleanup 完成", zap.String("member_id", session.MemberID()))
	return nil
}

// ConsumeClaim 逐条处理分区消息。无论成功、进入 DLQ 还是 DLQ 失败，消息都会被标记并提交，
// 以免单条坏消息阻塞整个分区。
func (h *Handler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	h.logger.Info("开始消费分区",
		zap.String("topic", claim.Topic()),
		zap.Int32("partition", claim.Partition()),
		zap.Int64("initial_offset", claim.InitialOffset()),
	)

	for message := range claim.Messages() {
		h.consumeMessage(session.Context(), message)
		session.MarkMessage(message, "")
		session.Commit()

		if err := session.Context().Err(); err != nil {
			h.logger.Info("会话上下文已结束，停止消费此分区",
				zap.String("topic", claim.Topic()),
				zap.Int32("partition", claim.Partition()),
				zap.Int64("last_processed_offset", message.Offset),
			)
			return err
		}
	}
	return nil
}

func (h *Handler) consumeMessage(ctx context.Context, message *sarama.ConsumerMessage) {
	fields := []zap.Field{
		zap.String("topic", message.Topic),
		zap.Int32("partition", message.Partition),
		zap.Int64("offset", message.Offset),
	}

	handlerFunc, ok := h.topicToHandler[message.Topic]
	if !ok {
		h.logger.Warn("未找到该主题的处理函数，跳过此消息", fields...)
		return
	}

	processErr := h.processWithRetry(ctx, message, handlerFunc)
	if processErr == nil {
		h.logger.Debug("消息处理成功", fields...)
		return
	}

	h.logger.Error("消息最终处理失败，准备发送到 DLQ", append(fields, zap.Error(processErr))...)
	dlqCtx, cancel := context.WithTimeout(context.Background(), dlqSendTimeout)
	defer cancel()
	if err := SendToDLQ(dlqCtx, h.dlqProducer, h.dlqTopic, message, processErr, h.logger); err != nil {
		h.logger.Error("发送到 DLQ 失败，消息将丢失，需要人工关注",
			append(fields, zap.NamedError("processing_error", processErr), zap.NamedError("dlq_error", err))...)
	}
}

// processWithRetry 以指数退避执行 handlerFunc，永久性错误立即停止。
func (h *Handler) processWithRetry(ctx context.Context, message *sarama.ConsumerMessage, handlerFunc MessageHandlerFunc) error {
	operation := func() error {
		err := handlerFunc(ctx, message)
		if err == nil {
			return nil
		}
		if isPermanentError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		h.logger.Warn("消息处理失败，准备重试",
			zap.String("topic", message.Topic),
			zap.Int64("offset", message.Offset),
			zap.Duration("next_retry_in", next),
			zap.Error(err),
		)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(h.newBackOff(), h.maxRetry), ctx)
	return backoff.RetryNotify(operation, bo, notify)
}

func (h *Handler) handleOfferChanged(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event models.OfferChangedEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		h.logger.Error("反序列化目录变更事件失败",
			zap.String("topic", message.Topic),
			zap.Int64("offset", message.Offset),
			zap.ByteString("raw_value_snippet", message.Value[:min(1024, len(message.Value))]),
			zap.Error(err),
		)
		return backoff.Permanent(fmt.Errorf("反序列化目录变更事件失败 (主题: %s, 偏移量: %d): %w", message.Topic, message.Offset, err))
	}
	return h.eventService.HandleOfferChanged(ctx, event)
}

// isPermanentError 判断错误是否不值得重试。
func isPermanentError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, ErrInvalidEventFormat) {
		return true
	}
	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	return errors.As(err, &syntaxError) || errors.As(err, &unmarshalTypeError)
}
