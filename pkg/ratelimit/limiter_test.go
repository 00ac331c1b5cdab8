package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretrack/referral-platform/pkg/config"
)

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		WindowSeconds:  60,
		DefaultLimit:   100,
		AnonymousLimit: 10,
		RedisPrefix:    "ratelimit",
	}
}

func TestAllowUnderLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewLimiter(db, testConfig())

	mock.ExpectEvalSha(limiter.script.Hash(), []string{"ratelimit:203.0.113.10"}, int64(60000)).
		SetVal([]interface{}{int64(1), int64(60000)})

	result, err := limiter.Allow(context.Background(), "203.0.113.10", Rule{Limit: 10, Window: time.Minute})

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 9, result.Remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAllowAtLimitBoundary(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewLimiter(db, testConfig())

	// The tenth request on a limit of ten is still allowed
	mock.ExpectEvalSha(limiter.script.Hash(), []string{"ratelimit:203.0.113.10"}, int64(60000)).
		SetVal([]interface{}{int64(10), int64(30000)})

	result, err := limiter.Allow(context.Background(), "203.0.113.10", Rule{Limit: 10, Window: time.Minute})

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
}

func TestAllowOverLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewLimiter(db, testConfig())

	mock.ExpectEvalSha(limiter.script.Hash(), []string{"ratelimit:203.0.113.10"}, int64(60000)).
		SetVal([]interface{}{int64(11), int64(30000)})

	result, err := limiter.Allow(context.Background(), "203.0.113.10", Rule{Limit: 10, Window: time.Minute})

	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, 30*time.Second, result.RetryAfter)
}

func TestAllowDisabledLimiterPassesEverything(t *testing.T) {
	db, _ := redismock.NewClientMock()
	cfg := testConfig()
	cfg.Enabled = false
	limiter := NewLimiter(db, cfg)

	result, err := limiter.Allow(context.Background(), "203.0.113.10", Rule{Limit: 10, Window: time.Minute})

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 10, result.Remaining)
}

func TestRuleForIdentity(t *testing.T) {
	db, _ := redismock.NewClientMock()
	limiter := NewLimiter(db, testConfig())

	assert.Equal(t, 10, limiter.RuleFor(IdentityAnonymous).Limit)
	assert.Equal(t, 100, limiter.RuleFor(IdentityAuthenticated).Limit)
	assert.Equal(t, time.Minute, limiter.RuleFor(IdentityAnonymous).Window)
}

func performRequest(limiter *Limiter) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/r/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/r/test", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestMiddlewareSetsRateLimitHeaders(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewLimiter(db, testConfig())

	mock.ExpectEvalSha(limiter.script.Hash(), []string{"ratelimit:192.0.2.1"}, int64(60000)).
		SetVal([]interface{}{int64(3), int64(45000)})

	w := performRequest(limiter)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "7", w.Header().Get("X-RateLimit-Remaining"))
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewLimiter(db, testConfig())

	mock.ExpectEvalSha(limiter.script.Hash(), []string{"ratelimit:192.0.2.1"}, int64(60000)).
		SetVal([]interface{}{int64(11), int64(30000)})

	w := performRequest(limiter)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
}

func TestMiddlewareFailsOpenOnRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	limiter := NewLimiter(db, testConfig())

	mock.ExpectEvalSha(limiter.script.Hash(), []string{"ratelimit:192.0.2.1"}, int64(60000)).
		SetErr(errors.New("connection refused"))

	w := performRequest(limiter)

	assert.Equal(t, http.StatusOK, w.Code)
}
