package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const adjustKeyPrefix = "rl:adjust:"

// AdjustRateLimit caps balance adjustments per wallet in a fixed one-minute
// window counted in Redis, keyed by the canonical wallet UUID. Ids that are
// not UUIDs are left for the handler to reject. A nil client disables it;
// Redis errors fail open.
func AdjustRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) gin.HandlerFunc {
	if maxPerMin <= 0 {
		maxPerMin = 60
	}
	return func(c *gin.Context) {
		if cache == nil {
			c.Next()
			return
		}
		walletID, err := uuid.Parse(c.Param("wallet_id"))
		if err != nil {
			c.Next()
			return
		}
		key := adjustKeyPrefix + walletID.String()
		ctx := c.Request.Context()

		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("Rate limit lookup failed",
				slog.String("key", key),
				slog.Any("err", err),
			)
			c.Next()
			return
		}
		if cnt == 1 {
			if err := cache.Expire(ctx, key, time.Minute).Err(); err != nil {
				logger.Warn("Rate limit expiry failed",
					slog.String("key", key),
					slog.Any("err", err),
				)
			}
		}
		if cnt > int64(maxPerMin) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many adjustments, try again later"})
			return
		}
		c.Next()
	}
}
