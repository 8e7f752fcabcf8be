package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/config"
	"github.com/Xushengqwer/game_offers/internal/models"
)

// memCache 是测试用的内存缓存。
type memCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return b, nil
}

func (m *memCache) Set(_ context.Context, key string, body []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = body
	return nil
}

func (m *memCache) InvalidatePrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func (m *memCache) Close() error { return nil }

func (m *memCache) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func newTestClient(t *testing.T, srv *httptest.Server, cache ResponseCache, mutate func(*config.UpstreamConfig)) *Client {
	t.Helper()
	cfg := config.UpstreamConfig{
		BaseURL:              srv.URL + "/api",
		Timeout:              2 * time.Second,
		MaxRetries:           2,
		RetryInitialInterval: time.Millisecond,
		CacheTTL:             time.Minute,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg, nil, cache, zap.NewNop())
	require.NoError(t, err)
	return c
}

type payload struct {
	Total int      `json:"total"`
	Tags  []string `json:"tags"`
}

func TestGetDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "page=2&query=doom", r.URL.RawQuery)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"total":7,"tags":["a","b"]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil, nil)
	var out payload
	require.NoError(t, c.Get(context.Background(), "/search", url.Values{"query": {"doom"}, "page": {"2"}}, &out))
	assert.Equal(t, payload{Total: 7, Tags: []string{"a", "b"}}, out)
}

func TestGetRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"total":1}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil, nil)
	var out payload
	require.NoError(t, c.Get(context.Background(), "/search", nil, &out))
	assert.Equal(t, 1, out.Total)
	assert.EqualValues(t, 2, hits.Load())
}

func TestGetGivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil, nil)
	err := c.Get(context.Background(), "/search", nil, &payload{})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.EqualValues(t, 3, hits.Load())
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad sortBy", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil, nil)
	err := c.Get(context.Background(), "/search", nil, &payload{})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "bad sortBy", statusErr.Body)
	assert.EqualValues(t, 1, hits.Load())
}

func TestGetMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total":`))
	}))
	defer srv.Close()

	cache := newMemCache()
	c := newTestClient(t, srv, cache, nil)
	require.Error(t, c.Get(context.Background(), "/search", nil, &payload{}))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, cache.len(), "invalid bodies are never cached")
}

func TestRejectedBodyIsNotCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"total":-1,"offers":[],"page":1,"limit":25}`))
			return
		}
		_, _ = w.Write([]byte(`{"total":3,"offers":[],"page":1,"limit":25}`))
	}))
	defer srv.Close()

	cache := newMemCache()
	c := newTestClient(t, srv, cache, nil)
	params := url.Values{"query": {"celeste"}}

	var first models.SearchResponse
	require.NoError(t, c.Get(context.Background(), "/search", params, &first))
	assert.Error(t, first.Verify())
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, cache.len(), "bodies failing Verify are never cached")

	var second models.SearchResponse
	require.NoError(t, c.Get(context.Background(), "/search", params, &second))
	require.NoError(t, second.Verify())
	assert.EqualValues(t, 3, second.Total)
	assert.EqualValues(t, 2, hits.Load())
	assert.Eventually(t, func() bool { return cache.len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestInvalidCachedBodyFallsBackToUpstream(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"total":4,"offers":[],"page":2,"limit":25}`))
	}))
	defer srv.Close()

	cache := newMemCache()
	params := url.Values{"page": {"2"}}
	cache.data[cacheKey("/search", params)] = []byte(`{"total":-7,"offers":[],"page":2,"limit":25,"meta":{"cached":true}}`)
	c := newTestClient(t, srv, cache, nil)

	var out models.SearchResponse
	require.NoError(t, c.Get(context.Background(), "/search", params, &out))
	assert.EqualValues(t, 4, out.Total)
	assert.False(t, out.Meta.Cached, "cached fields do not leak into the fresh result")
	assert.EqualValues(t, 1, hits.Load())
}

func TestGetServesFromCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"total":3}`))
	}))
	defer srv.Close()

	cache := newMemCache()
	c := newTestClient(t, srv, cache, nil)
	params := url.Values{"query": {"x"}}

	var first payload
	require.NoError(t, c.Get(context.Background(), "/search", params, &first))
	assert.Eventually(t, func() bool { return cache.len() == 1 }, time.Second, 5*time.Millisecond)

	var second payload
	require.NoError(t, c.Get(context.Background(), "/search", params, &second))
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, hits.Load())

	n, err := c.InvalidatePrefix(context.Background(), "/search")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, c.Get(context.Background(), "/search", params, &second))
	assert.EqualValues(t, 2, hits.Load())
}

func TestCacheFailureDoesNotFailRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total":9}`))
	}))
	defer srv.Close()

	cache := newMemCache()
	cache.getErr = errors.New("redis: connection refused")
	c := newTestClient(t, srv, cache, nil)

	var out payload
	require.NoError(t, c.Get(context.Background(), "/tags", nil, &out))
	assert.Equal(t, 9, out.Total)
}

func TestConcurrentIdenticalRequestsAreCoalesced(t *testing.T) {
	var hits atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			close(entered)
		}
		<-release
		_, _ = w.Write([]byte(`{"total":5}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil, nil)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]payload, callers)
	errs := make([]error, callers)
	call := func(i int) {
		defer wg.Done()
		errs[i] = c.Get(context.Background(), "/search", url.Values{"page": {"2"}}, &results[i])
	}

	wg.Add(1)
	go call(0)
	<-entered
	for i := 1; i < callers; i++ {
		wg.Add(1)
		go call(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 5, results[i].Total)
	}
	assert.EqualValues(t, 1, hits.Load())
}

func TestGetHonoursCallerContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := c.Get(ctx, "/search", nil, &payload{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New(config.UpstreamConfig{BaseURL: "catalog.local"}, nil, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `game:\*\?\[x\]`, escapeGlob("game:*?[x]"))
	assert.Equal(t, "/search?page=2", cacheKey("/search", url.Values{"page": {"2"}}))
	assert.Equal(t, "/tags", cacheKey("/tags", nil))
}
