package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/booktracker/pkg/config"
	"github.com/shishobooks/booktracker/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	e, err := NewEcho(cfg, db)
	require.NoError(t, err)
	return e
}

func serve(e *echo.Echo, method, path, payload string) *httptest.ResponseRecorder {
	var req *http.Request
	if payload == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(payload))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.RemoteAddr = "192.0.2.1:1234"
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func TestServer_BooksRoundTrip(t *testing.T) {
	e := newTestServer(t, config.NewForTest())

	rr := serve(e, http.MethodPost, "/api/books", `{"title":"Dune","author":"Herbert"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	env := decode(t, rr)
	assert.True(t, env.Success)
	assert.Equal(t, "Book created successfully", env.Message)

	rr = serve(e, http.MethodGet, "/api/books", "")
	require.Equal(t, http.StatusOK, rr.Code)
	env = decode(t, rr)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"title":"Dune"`)
}

func TestServer_Health(t *testing.T) {
	e := newTestServer(t, config.NewForTest())

	rr := serve(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestServer_EndpointNotFound(t *testing.T) {
	e := newTestServer(t, config.NewForTest())

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/nothing"},
		{http.MethodGet, "/"},
		{http.MethodPut, "/api/books/1"},
	} {
		rr := serve(e, tc.method, tc.path, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, tc.path)
		env := decode(t, rr)
		assert.False(t, env.Success)
		assert.Equal(t, "Endpoint not found", env.Error)
	}
}

func TestServer_CORS(t *testing.T) {
	e := newTestServer(t, config.NewForTest())

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestServer_RateLimit(t *testing.T) {
	cfg := config.NewForTest()
	cfg.RateLimitPerSecond = 0.001
	cfg.RateLimitBurst = 2
	e := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/api/books", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/api/books", "").Code)

	rr := serve(e, http.MethodGet, "/api/books", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "Too many requests", decode(t, rr).Error)
}

func TestRateLimiter_PerIPAndSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(1, 1)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))

	now = now.Add(10 * time.Minute)
	assert.True(t, rl.allow("c"))
	assert.Len(t, rl.visitors, 1)
}

func TestNew_Addr(t *testing.T) {
	cfg := config.NewForTest()
	cfg.ServerPort = 4321

	db, err := database.New(cfg)
	require.NoError(t, err)
	defer db.Close()

	srv, err := New(cfg, db)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4321", srv.Addr)
}

func TestServer_TestRoutes(t *testing.T) {
	e := newTestServer(t, config.NewForTest())

	rr := serve(e, http.MethodPost, "/test/books", `{"count":5}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var seeded []map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &seeded))
	assert.Len(t, seeded, 5)

	rr = serve(e, http.MethodGet, "/api/books", "")
	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &listed))
	assert.Len(t, listed, 5)

	rr = serve(e, http.MethodDelete, "/test/books", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deleted":5}`, string(decode(t, rr).Data))
}

func TestServer_TestRoutesSeedCount(t *testing.T) {
	e := newTestServer(t, config.NewForTest())

	count := func() int {
		var listed []map[string]interface{}
		require.NoError(t, json.Unmarshal(decode(t, serve(e, http.MethodGet, "/api/books", "")).Data, &listed))
		return len(listed)
	}

	rr := serve(e, http.MethodPost, "/test/books", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, 20, count())

	rr = serve(e, http.MethodPost, "/test/books", `{"count":0}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.JSONEq(t, `[]`, string(decode(t, rr).Data))
	assert.Equal(t, 0, count())

	rr = serve(e, http.MethodPost, "/test/books", `{"count":-1}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServer_TestRoutesHiddenOutsideTest(t *testing.T) {
	cfg := config.NewForTest()
	cfg.Environment = "development"
	e := newTestServer(t, cfg)

	rr := serve(e, http.MethodDelete, "/test/books", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

type queryRecorder struct {
	mu      sync.Mutex
	queries []string
}

func (r *queryRecorder) Debug(message string, _ ...logger.Data) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, message)
}

func TestServer_DatabaseDebugLogsRequestQueries(t *testing.T) {
	for _, debug := range []bool{true, false} {
		cfg := config.NewForTest()
		cfg.DatabaseDebug = debug

		db, err := database.New(cfg)
		require.NoError(t, err)
		rec := &queryRecorder{}
		db.AddQueryHook(database.NewQueryHook(rec))

		e, err := NewEcho(cfg, db)
		require.NoError(t, err)

		rr := serve(e, http.MethodGet, "/api/books", "")
		require.Equal(t, http.StatusOK, rr.Code)

		if debug {
			require.NotEmpty(t, rec.queries)
			assert.Contains(t, rec.queries[0], `FROM "books"`)
		} else {
			assert.Empty(t, rec.queries)
		}
		require.NoError(t, db.Close())
	}
}

func TestServer_RateLimitIgnoresForwardedFor(t *testing.T) {
	cfg := config.NewForTest()
	cfg.RateLimitPerSecond = 0.001
	cfg.RateLimitBurst = 1
	e := newTestServer(t, cfg)

	request := func(forwardedFor string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
		rr := httptest.NewRecorder()
		e.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, request("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("203.0.113.2"))
}

func TestServer_RateLimitTrustsProxyWhenConfigured(t *testing.T) {
	cfg := config.NewForTest()
	cfg.RateLimitPerSecond = 0.001
	cfg.RateLimitBurst = 1
	cfg.TrustProxy = true
	e := newTestServer(t, cfg)

	for _, forwardedFor := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
		rr := httptest.NewRecorder()
		e.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, forwardedFor)
	}
}
