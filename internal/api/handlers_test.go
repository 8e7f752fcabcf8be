package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/internal/executor"
	"github.com/Xushengqwer/game_offers/internal/freebies"
	"github.com/Xushengqwer/game_offers/internal/models"
	"github.com/Xushengqwer/game_offers/internal/service"
	"github.com/Xushengqwer/game_offers/internal/session"
)

type routeGetter struct {
	mu     sync.Mutex
	bodies map[string]string
	fail   map[string]bool
}

func (g *routeGetter) Get(_ context.Context, path string, _ url.Values, out any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail[path] {
		return errors.New("upstream unavailable")
	}
	body, ok := g.bodies[path]
	if !ok {
		return fmt.Errorf("unexpected path %s", path)
	}
	return json.Unmarshal([]byte(body), out)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) (*gin.Engine, *routeGetter) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := &routeGetter{
		bodies: map[string]string{
			"/search":     `{"total":1,"offers":[{"id":"o1","namespace":"ns","title":"Celeste"}],"page":1,"limit":25,"aggregations":{"priceStats":{"count":1,"min":0,"max":0,"avg":0,"sum":0}}}`,
			"/tags":       `[{"id":"1","name":"Indie"}]`,
			"/free-games": `{"total":0,"offers":[],"page":1,"limit":25}`,
		},
		fail: map[string]bool{},
	}
	logger := zap.NewNop()
	exec := executor.New(g, logger)
	fsvc := freebies.NewService(g, logger, "")
	reg := session.NewRegistry(session.Config{MaxSessions: 2}, map[models.SessionKind]session.RunFunc{
		models.SessionKindSearch:   session.SearchRunner(exec),
		models.SessionKindFreebies: session.FreebiesRunner(fsvc),
	}, logger)
	svc := service.NewSearchService(exec, fsvc, nil, reg, logger)

	r := gin.New()
	NewSearchHandler(svc, logger).RegisterRoutes(r.Group("/api/v1"))
	return r, g
}

func do(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func TestSearchEndpoint(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodGet, "/api/v1/search?query=celeste&page=oops", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "page", w.Header().Get(HeaderQueryWarnings))

	var resp models.SearchResponse
	decodeData(t, w, &resp)
	assert.EqualValues(t, 1, resp.Total)
	require.NotNil(t, resp.Aggregations.PriceStats)
}

func TestSearchEndpointUpstreamFailure(t *testing.T) {
	r, g := setupRouter(t)
	g.fail["/search"] = true

	w := do(r, http.MethodGet, "/api/v1/search", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Empty(t, w.Header().Get(HeaderQueryWarnings))
}

func TestTagsFreebiesVocabulary(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodGet, "/api/v1/tags", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/freebies?sortDir=up", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sortDir", w.Header().Get(HeaderQueryWarnings))

	w = do(r, http.MethodGet, "/api/v1/vocabulary", "")
	require.Equal(t, http.StatusOK, w.Code)
	var vocab models.Vocabulary
	decodeData(t, w, &vocab)
	assert.Len(t, vocab.Tags, 1)
	assert.Empty(t, vocab.HotTerms)
}

func TestHotTermsEndpoint(t *testing.T) {
	r, _ := setupRouter(t)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/search/hot-terms?limit=500", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/v1/search/hot-terms", "").Code)
}

func TestSessionEndpoints(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(r, http.MethodPost, "/api/v1/sessions", `{"kind":"search","location":"query=celeste"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.SessionSnapshot
	decodeData(t, w, &snap)
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, "celeste", snap.Query.Query)
	base := "/api/v1/sessions/" + snap.ID

	w = do(r, http.MethodPatch, base+"/query", `{"query":"celeste","page":2}`)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &snap)
	assert.Equal(t, "page=2&query=celeste", snap.Location)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, base+"/query", `{"sortDir":"sideways"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPatch, base+"/query", `[1,2]`).Code)

	w = do(r, http.MethodPost, base+"/back", "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &snap)
	assert.Equal(t, 1, snap.Query.Page)

	w = do(r, http.MethodGet, base+"/navigate?query=hades&limit=abc", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "limit", w.Header().Get(HeaderQueryWarnings))

	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, base+"/forward", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, base, "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, base, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, base, "").Code)
}

func TestCreateSessionValidation(t *testing.T) {
	r, _ := setupRouter(t)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/sessions", `{"kind":"wishlist"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/sessions", `{"kind":"search","location":"%zz"}`).Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/sessions", `{"kind":"freebies"}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/sessions", `{"kind":"freebies"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/api/v1/sessions", `{"kind":"search"}`).Code)
}

func TestCreateSessionKeepsSessionWhenInitialQueryFails(t *testing.T) {
	r, g := setupRouter(t)
	g.fail["/search"] = true

	w := do(r, http.MethodPost, "/api/v1/sessions", `{"kind":"search","location":"query=x"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var snap models.SessionSnapshot
	decodeData(t, w, &snap)
	assert.NotEmpty(t, snap.ID)
	assert.NotEmpty(t, snap.Error)
	assert.Nil(t, snap.Search)
}

func TestHealthCheck(t *testing.T) {
	r, _ := setupRouter(t)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/_health", "").Code)
}
