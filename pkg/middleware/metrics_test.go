package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func metricsRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Metrics())
	router.GET("/rewards/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestMetricsRecordsMatchedRouteTemplate(t *testing.T) {
	router := metricsRouter()
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/rewards/:id", "200")
	before := testutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/rewards/abc123", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestMetricsCollapsesUnmatchedPaths(t *testing.T) {
	router := metricsRouter()
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	before := testutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/definitely/not/a/route", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestMetricsInFlightGaugeReturnsToZero(t *testing.T) {
	router := metricsRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/rewards/abc123", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, float64(0), testutil.ToFloat64(httpRequestsInFlight))
}
