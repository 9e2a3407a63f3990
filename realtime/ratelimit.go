package realtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles gate requests per client IP with a fixed window
// counter in Redis. The stream endpoints are cheap to poll and expensive
// to hold open, so reconnect storms get cut off here before they reach
// the event service.
type RateLimiter struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  30,
		window: time.Minute,
	}
}

// Middleware enforces the per-IP window. A Redis outage fails open; the
// gate keeps serving rather than taking streams down with the limiter.
func (r *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.redis == nil {
				return next(c)
			}

			key := fmt.Sprintf("gate:rate:%s", c.RealIP())
			ctx := context.Background()

			count, err := r.redis.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if count == 1 {
				r.redis.Expire(ctx, key, r.window)
			}
			if count > r.limit {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "Too many requests. Please try again later.",
				})
			}

			return next(c)
		}
	}
}
