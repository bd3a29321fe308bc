package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/brahimariani/geant4-api/pkg/response"
)

// RateLimiter throttles requests per caller using Redis counters. Without
// Redis every request is allowed; a burst of simulation starts is then only
// bounded by the worker concurrency.
type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit creates a rate limiting middleware. Counters are keyed by the
// authenticated user when there is one, otherwise by client IP.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl.redis == nil || maxRequests <= 0 {
			return c.Next()
		}

		who := GetUserID(c)
		if who == "" {
			who = c.IP()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, who)
		ctx := context.Background()

		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			// If Redis fails, allow the request.
			return c.Next()
		}

		// Set expiration on first request
		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// CreateLimit guards configuration and job creation endpoints.
func (rl *RateLimiter) CreateLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("create", maxPerMin, time.Minute)
}

// ControlLimit guards the job control endpoints (start, pause, resume,
// cancel).
func (rl *RateLimiter) ControlLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("control", maxPerMin, time.Minute)
}
