package bootstrap

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdboard/birdboard-backend/config"
	"github.com/birdboard/birdboard-backend/internal/auth"
	"github.com/birdboard/birdboard-backend/internal/testing/fakes"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Redis:  config.RedisConfig{ListCacheTTL: time.Minute},
		Auth:   config.AuthConfig{Mode: config.AuthModeHeader, LoginPath: "/login"},
		RateLimit: config.RateLimitConfig{
			Enabled: true,
			RPS:     100,
			Burst:   100,
		},
		App: config.AppConfig{ServiceName: "birdboard-api", Version: "test"},
	}
}

func buildTestRouter(t *testing.T, rdb *redis.Client) (*gin.Engine, *fakes.Store) {
	return buildTestRouterWith(t, testConfig(), rdb)
}

func buildTestRouterWith(t *testing.T, cfg *config.Config, rdb *redis.Client) (*gin.Engine, *fakes.Store) {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	store := fakes.NewStore()

	r := BuildRouter(RouterDeps{
		Config:   cfg,
		Logger:   logger,
		Redis:    rdb,
		Resolver: auth.HeaderResolver{},
		Projects: store.Projects(),
		Tasks:    store.Tasks(),
		Users:    store.Users(),
	})
	return r, store
}

func send(r http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBuildRouter_EndToEnd(t *testing.T) {
	r, store := buildTestRouter(t, nil)

	w := send(r, http.MethodPost, "/projects", "alice", `{"title":"T","description":"D"}`)
	require.Equal(t, http.StatusSeeOther, w.Code)
	path := w.Header().Get("Location")
	assert.Equal(t, store.AllProjects()[0].Path(), path)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = send(r, http.MethodGet, "/projects", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"T"`)

	w = send(r, http.MethodPatch, path, "bob", `{"notes":"x"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "", store.AllProjects()[0].Notes)

	w = send(r, http.MethodPost, path+"/tasks", "", `{"body":"Test task"}`)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Empty(t, store.AllTasks())
}

func TestBuildRouter_PublicRoutes(t *testing.T) {
	r, _ := buildTestRouter(t, nil)

	w := send(r, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodGet, "/login", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(r, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "disabled", health["db"])
	assert.Equal(t, "disabled", health["redis"])
}

func TestBuildRouter_CORS(t *testing.T) {
	r, _ := buildTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/projects", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRouter_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	r, store := buildTestRouter(t, rdb)

	require.Equal(t, http.StatusSeeOther, send(r, http.MethodPost, "/projects", "alice", `{"title":"T","description":"D"}`).Code)
	require.Equal(t, http.StatusOK, send(r, http.MethodGet, "/projects", "alice", "").Code)
	require.Equal(t, http.StatusOK, send(r, http.MethodGet, "/projects", "alice", "").Code)
	assert.Equal(t, 1, store.ListCalls)

	w := send(r, http.MethodGet, "/health", "", "")
	assert.Contains(t, w.Body.String(), `"redis":"up"`)
}

func TestBuildRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.5, Burst: 1}
	r, _ := buildTestRouterWith(t, cfg, nil)

	require.Equal(t, http.StatusOK, send(r, http.MethodGet, "/projects", "alice", "").Code)
	w := send(r, http.MethodGet, "/projects", "alice", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/projects", "bob", "").Code, "buckets are per user")

	// public routes are limited by client IP
	require.Equal(t, http.StatusOK, send(r, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, send(r, http.MethodGet, "/health", "", "").Code)
}

func TestBuildRouter_PublicRoutesSkipIdentity(t *testing.T) {
	r, store := buildTestRouter(t, nil)
	store.Err = errors.New("db down")

	w := send(r, http.MethodGet, "/health", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status"`)

	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/", "alice", "").Code)
	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodGet, "/login", "alice", "").Code)

	// app routes still need the user row
	assert.Equal(t, http.StatusInternalServerError, send(r, http.MethodGet, "/projects", "alice", "").Code)
}
