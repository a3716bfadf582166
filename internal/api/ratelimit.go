package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fastprodman/creatorledger/internal/identity"
	"github.com/fastprodman/creatorledger/internal/infra/logging"
	"github.com/redis/go-redis/v9"
)

type RateLimiter interface {
	// Allow counts one call for key and reports whether it is within the
	// limit.
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter: INCR per call, EXPIRE on the first
// call of a window.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client redis.Cmdable, limit int64, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = time.Minute
	}

	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := "ratelimit:" + key + ":" + strconv.FormatInt(time.Now().UnixNano()/int64(l.window), 10)

	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("incr %s: %w", k, err)
	}

	if n == 1 {
		err = l.client.Expire(ctx, k, l.window).Err()
		if err != nil {
			return false, fmt.Errorf("expire %s: %w", k, err)
		}
	}

	return n <= l.limit, nil
}

// rateLimit throttles mutating calls per user. Limiter outages let traffic
// through.
func rateLimit(limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := identity.FromContext(r.Context())
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ok, err := limiter.Allow(r.Context(), id.UserID)
			if err != nil {
				logging.FromContext(r.Context()).WarnContext(r.Context(), "rate limiter unavailable", slog.Any("error", err))
				next.ServeHTTP(w, r)

				return
			}

			if !ok {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
