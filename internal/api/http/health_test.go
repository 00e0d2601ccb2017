package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdboard/birdboard-backend/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func getHealth(t *testing.T, h *HealthHandler, path string) (int, HealthResponse) {
	t.Helper()
	router := gin.New()
	h.RegisterRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

	var response HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	return rr.Code, response
}

func TestHealthCheck(t *testing.T) {
	code, response := getHealth(t, NewHealthHandler("test-service", "1.0.0", nil, nil), "/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "test-service", response.Service)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Equal(t, "disabled", response.DB)
	assert.Equal(t, "disabled", response.Redis)
}

func TestHealthCheckWithDependencies(t *testing.T) {
	var dbErr error
	db := pingerFunc(func(context.Context) error { return dbErr })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := NewHealthHandler("test-service", "1.0.0", db, rdb)

	t.Run("all up", func(t *testing.T) {
		code, response := getHealth(t, h, "/healthz")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "up", response.DB)
		assert.Equal(t, "up", response.Redis)
	})

	t.Run("redis down is degraded", func(t *testing.T) {
		mr.SetError("ERR server down")
		defer mr.SetError("")

		code, response := getHealth(t, h, "/health")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "degraded", response.Status)
		assert.Equal(t, "down", response.Redis)
	})

	t.Run("db down is unhealthy", func(t *testing.T) {
		dbErr = errors.New("connection refused")
		defer func() { dbErr = nil }()

		code, response := getHealth(t, h, "/health")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Equal(t, "down", response.DB)
	})
}

func TestHealthCheckMethodNotAllowed(t *testing.T) {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	NewHealthHandler("test-service", "1.0.0", nil, nil).RegisterRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHomeAndLogin(t *testing.T) {
	router := gin.New()
	NewHomeHandler("birdboard-api", "2.0.0", config.AuthModeHeader, "/login").RegisterRoutes(router)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "birdboard-api")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "X-User-Id")
}
