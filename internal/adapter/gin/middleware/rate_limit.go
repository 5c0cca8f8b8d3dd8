package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiterConfig holds configuration for the token bucket rate limiter.
type RateLimiterConfig struct {
	RequestsPerSecond float64 // Token refill rate
	BurstCapacity     int     // Maximum tokens in the bucket
	Enabled           bool    // Disabled limiters allow everything
}

// RateLimiter implements per-client rate limiting backed by Redis using the
// Token Bucket algorithm. The bucket state lives in Redis so limits hold
// across multiple service instances.
type RateLimiter struct {
	client *redis.Client
	cfg    RateLimiterConfig
	log    *zap.Logger
}

// NewRateLimiter creates a new Redis-backed rate limiter.
func NewRateLimiter(client *redis.Client, cfg RateLimiterConfig, log *zap.Logger) *RateLimiter {
	return &RateLimiter{client: client, cfg: cfg, log: log}
}

// Token Bucket implemented in Lua for atomicity.
// Bucket state: {last_refill_time, current_tokens}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
local last_refill = tonumber(bucket[1]) or now
local tokens = tonumber(bucket[2]) or capacity

local elapsed = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + elapsed * rate)

if tokens >= requested then
	tokens = tokens - requested
	redis.call('HMSET', key, 'last_refill', now, 'tokens', tokens)
	redis.call('EXPIRE', key, 60)
	return 1
end

redis.call('HMSET', key, 'last_refill', now, 'tokens', tokens)
redis.call('EXPIRE', key, 60)
return 0
`)

// Allow reports whether a request identified by key may proceed.
func (rl *RateLimiter) Allow(c *gin.Context, key string) (bool, error) {
	now := float64(time.Now().UnixNano()) / float64(time.Second)

	res, err := tokenBucketScript.Run(c.Request.Context(), rl.client, []string{key},
		rl.cfg.RequestsPerSecond,
		rl.cfg.BurstCapacity,
		now,
		1,
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit script failed: %w", err)
	}

	return res == 1, nil
}

// Middleware returns a gin middleware enforcing the rate limit per client IP
// and route. Redis failures fail open so a broken limiter backend does not
// take the API down.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || rl.client == nil || !rl.cfg.Enabled {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:tb:%s:%s:%s", c.Request.Method, c.FullPath(), c.ClientIP())

		allowed, err := rl.Allow(c, key)
		if err != nil {
			rl.log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			rl.log.Warn("rate limit exceeded",
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.FullPath()),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests, slow down",
			})
			return
		}

		c.Next()
	}
}
