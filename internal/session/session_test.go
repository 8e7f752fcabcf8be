package session

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/internal/executor"
	"github.com/Xushengqwer/game_offers/internal/models"
	"github.com/Xushengqwer/game_offers/internal/query"
)

func echoRunner(calls *[]query.SearchQuery) RunFunc {
	var mu sync.Mutex
	return func(_ context.Context, q query.SearchQuery) (Result, error) {
		mu.Lock()
		*calls = append(*calls, q)
		mu.Unlock()
		return Result{Search: &models.SearchResponse{Total: 100, Page: q.Page, Limit: q.Limit}}, nil
	}
}

func newTestRegistry(t *testing.T, run RunFunc, cfg Config) *Registry {
	t.Helper()
	return NewRegistry(cfg, map[models.SessionKind]RunFunc{models.SessionKindSearch: run}, zap.NewNop())
}

func newTestSession(t *testing.T, run RunFunc) *Session {
	t.Helper()
	reg := newTestRegistry(t, run, Config{})
	s, err := reg.Create(models.SessionKindSearch)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestNavigateRunsDecodedQuery(t *testing.T) {
	var calls []query.SearchQuery
	s := newTestSession(t, echoRunner(&calls))

	snap, err := s.Navigate(context.Background(), url.Values{"query": {"witcher"}, "page": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, "witcher", snap.Query.Query)
	assert.Equal(t, "page=2&query=witcher", snap.Location)
	require.NotNil(t, snap.Search)
	assert.Equal(t, 2, snap.Search.Page)
	assert.Empty(t, snap.Warnings)
	require.Len(t, calls, 1)
}

func TestNavigateFallsBackToDefaults(t *testing.T) {
	var calls []query.SearchQuery
	s := newTestSession(t, echoRunner(&calls))

	snap, err := s.Navigate(context.Background(), url.Values{"page": {"abc"}, "limit": {"10"}})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Query.Page)
	assert.Equal(t, 10, snap.Query.Limit)
	assert.Equal(t, "limit=10", snap.Location, "location is canonicalized")
	require.Len(t, snap.Warnings, 1)
	assert.Equal(t, "page", snap.Warnings[0].Field)
}

func TestInteractRejectsInvalidInput(t *testing.T) {
	var calls []query.SearchQuery
	s := newTestSession(t, echoRunner(&calls))

	before := s.history.Current().String()
	snap, err := s.Interact(context.Background(), query.Raw{"sortDir": "sideways", "page": 0})
	require.ErrorIs(t, err, query.ErrInvalidQueryShape)
	assert.Equal(t, query.Default(), snap.Query)
	assert.Zero(t, snap.Version)
	assert.Empty(t, snap.Warnings, "invalid fields are rejected, not replaced by defaults")
	assert.Equal(t, before, s.history.Current().String())
	assert.Empty(t, calls)
}

func TestInteractPushesHistoryAndBackRestores(t *testing.T) {
	var calls []query.SearchQuery
	s := newTestSession(t, echoRunner(&calls))
	ctx := context.Background()

	_, err := s.Navigate(ctx, url.Values{"query": {"doom"}})
	require.NoError(t, err)

	snap, err := s.Interact(ctx, query.Raw{"query": "doom", "page": 3})
	require.NoError(t, err)
	assert.Equal(t, "page=3&query=doom", snap.Location)

	snap, err = s.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Query.Page)
	assert.Equal(t, "query=doom", snap.Location)

	snap, err = s.Forward(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Query.Page)

	_, err = s.Forward(ctx)
	assert.ErrorIs(t, err, ErrHistoryBoundary)
	assert.Len(t, calls, 4)
}

func TestExecutionFailureClearsResult(t *testing.T) {
	fail := false
	run := func(_ context.Context, q query.SearchQuery) (Result, error) {
		if fail {
			return Result{}, &executor.ExecutionError{Op: "search", Err: errors.New("502")}
		}
		return Result{Search: &models.SearchResponse{Page: 1, Limit: 25}}, nil
	}
	s := newTestSession(t, run)
	ctx := context.Background()

	snap, err := s.Navigate(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, snap.Search)

	fail = true
	snap, err = s.Interact(ctx, query.Raw{"query": "x"})
	require.ErrorIs(t, err, executor.ErrQueryExecution)
	assert.Nil(t, snap.Search)
	assert.NotEmpty(t, snap.Error)
}

// 先发出的查询 A 晚于查询 B 返回时，可见结果必须来自 B。
func TestSupersededQueryIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	releaseA := make(chan struct{})
	run := func(_ context.Context, q query.SearchQuery) (Result, error) {
		if q.Query == "a" {
			close(started)
			<-releaseA
			return Result{Search: &models.SearchResponse{Total: 1, Page: 1, Limit: 25}}, nil
		}
		return Result{Search: &models.SearchResponse{Total: 2, Page: 1, Limit: 25}}, nil
	}
	s := newTestSession(t, run)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		errA error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errA = s.Interact(ctx, query.Raw{"query": "a"})
	}()
	<-started

	snapB, errB := s.Interact(ctx, query.Raw{"query": "b"})
	require.NoError(t, errB)
	assert.EqualValues(t, 2, snapB.Search.Total)

	close(releaseA)
	wg.Wait()

	assert.ErrorIs(t, errA, executor.ErrStaleResponseDiscarded)
	final := s.Snapshot()
	assert.Equal(t, "b", final.Query.Query)
	require.NotNil(t, final.Search)
	assert.EqualValues(t, 2, final.Search.Total)
}

func TestSupersededRequestContextIsCancelled(t *testing.T) {
	started := make(chan struct{})
	run := func(ctx context.Context, q query.SearchQuery) (Result, error) {
		if q.Query == "slow" {
			close(started)
			<-ctx.Done()
			return Result{}, ctx.Err()
		}
		return Result{Search: &models.SearchResponse{Page: 1, Limit: 25}}, nil
	}
	s := newTestSession(t, run)

	errc := make(chan error, 1)
	go func() {
		_, err := s.Interact(context.Background(), query.Raw{"query": "slow"})
		errc <- err
	}()
	<-started

	_, err := s.Interact(context.Background(), query.Raw{"query": "fast"})
	require.NoError(t, err)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, executor.ErrStaleResponseDiscarded)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded request was not cancelled")
	}
	assert.Empty(t, s.Snapshot().Error)
}

func TestSessionsAreIndependent(t *testing.T) {
	var calls []query.SearchQuery
	reg := NewRegistry(Config{}, map[models.SessionKind]RunFunc{
		models.SessionKindSearch:   echoRunner(&calls),
		models.SessionKindFreebies: echoRunner(&calls),
	}, zap.NewNop())

	search, err := reg.Create(models.SessionKindSearch)
	require.NoError(t, err)
	free, err := reg.Create(models.SessionKindFreebies)
	require.NoError(t, err)

	_, err = search.Interact(context.Background(), query.Raw{"query": "portal", "page": 4})
	require.NoError(t, err)

	assert.Equal(t, query.Default(), free.Snapshot().Query)
	assert.Zero(t, free.Snapshot().Version)
	assert.Equal(t, "/free-games", free.history.Current().Path)
}
