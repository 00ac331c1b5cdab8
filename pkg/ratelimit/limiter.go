package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/caretrack/referral-platform/pkg/common"
	"github.com/caretrack/referral-platform/pkg/config"
	"github.com/caretrack/referral-platform/pkg/logger"
	"github.com/caretrack/referral-platform/pkg/middleware"

	"go.uber.org/zap"
)

// Identity classifies the caller for rate limiting purposes
type Identity int

const (
	// IdentityAnonymous is an unauthenticated caller, keyed by client IP
	IdentityAnonymous Identity = iota
	// IdentityAuthenticated is an authenticated caller, keyed by user ID
	IdentityAuthenticated
)

// Rule is the limit applied to a single caller within a window
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result is the outcome of a limiter check
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Fixed-window counter: the first request in a window sets the expiry,
// subsequent requests only increment.
const counterScript = `
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {count, ttl}
`

// Limiter enforces request limits backed by Redis counters
type Limiter struct {
	client *redis.Client
	script *redis.Script
	cfg    config.RateLimitConfig
}

// NewLimiter creates a new rate limiter
func NewLimiter(client *redis.Client, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client: client,
		script: redis.NewScript(counterScript),
		cfg:    cfg,
	}
}

// RuleFor returns the rule that applies to the given identity
func (l *Limiter) RuleFor(identity Identity) Rule {
	if identity == IdentityAuthenticated {
		return Rule{Limit: l.cfg.DefaultLimit, Window: l.cfg.Window()}
	}
	return Rule{Limit: l.cfg.AnonymousLimit, Window: l.cfg.Window()}
}

// Allow checks and consumes one request for the given key
func (l *Limiter) Allow(ctx context.Context, key string, rule Rule) (*Result, error) {
	if !l.cfg.Enabled {
		return &Result{Allowed: true, Remaining: rule.Limit}, nil
	}

	redisKey := fmt.Sprintf("%s:%s", l.cfg.RedisPrefix, key)

	raw, err := l.script.Run(ctx, l.client, []string{redisKey}, rule.Window.Milliseconds()).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return nil, fmt.Errorf("unexpected rate limit script result: %v", raw)
	}

	count, _ := values[0].(int64)
	ttlMillis, _ := values[1].(int64)

	result := &Result{
		Allowed:   count <= int64(rule.Limit),
		Remaining: rule.Limit - int(count),
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}
	if !result.Allowed && ttlMillis > 0 {
		result.RetryAfter = time.Duration(ttlMillis) * time.Millisecond
	}

	return result, nil
}

// Middleware enforces the limiter on a route group. Anonymous callers are
// keyed by client IP, authenticated callers by user ID. Redis failures fail
// open: dropping requests over a limiter outage would break referral signups.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityAnonymous
		key := c.ClientIP()
		if userID, exists := c.Get(middleware.UserIDKey); exists {
			identity = IdentityAuthenticated
			key = fmt.Sprintf("u:%v", userID)
		}

		rule := l.RuleFor(identity)
		result, err := l.Allow(c.Request.Context(), key, rule)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			c.Writer.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			common.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}
