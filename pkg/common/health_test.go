package common

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func healthRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/healthz", handler)
	return router
}

func TestHealthCheckReportsLiveness(t *testing.T) {
	router := healthRouter(HealthCheck("referral-api", "1.2.3"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "referral-api", resp.Service)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Empty(t, resp.Dependencies)
}

func TestHealthCheckWithDepsReportsEachDependency(t *testing.T) {
	router := healthRouter(HealthCheckWithDeps("referral-api", "1.2.3", map[string]Probe{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return nil },
	}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Len(t, resp.Dependencies, 2)
	assert.Equal(t, "healthy", resp.Dependencies["postgres"].Status)
	assert.Equal(t, "healthy", resp.Dependencies["redis"].Status)
	assert.NotEmpty(t, resp.Dependencies["postgres"].Latency)
}

func TestHealthCheckWithDepsFailingProbeReturns503(t *testing.T) {
	router := healthRouter(HealthCheckWithDeps("referral-api", "1.2.3", map[string]Probe{
		"postgres": func(ctx context.Context) error { return errors.New("connection refused") },
		"redis":    func(ctx context.Context) error { return nil },
	}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unhealthy", resp.Dependencies["postgres"].Status)
	assert.Equal(t, "connection refused", resp.Dependencies["postgres"].Error)
	assert.Equal(t, "healthy", resp.Dependencies["redis"].Status)
}

func TestHealthCheckWithDepsProbeRunsUnderTimeout(t *testing.T) {
	var deadlineSet bool
	router := healthRouter(HealthCheckWithDeps("referral-api", "1.2.3", map[string]Probe{
		"postgres": func(ctx context.Context) error {
			_, deadlineSet = ctx.Deadline()
			return nil
		},
	}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.True(t, deadlineSet)
}
