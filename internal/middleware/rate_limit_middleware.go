package middleware

import (
	"strconv"

	"github.com/creativedesignseo/taxi-bcn/internal/utils"
	"github.com/creativedesignseo/taxi-bcn/pkg/cache"
	"github.com/creativedesignseo/taxi-bcn/pkg/logger"
	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware allows limit requests per client IP per window. When
// the counter store fails the request is let through.
func RateLimitMiddleware(store cache.Store, limit int, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		key := "rate_limit:" + c.ClientIP()
		count, err := store.IncrementWindow(c.Request.Context(), key, utils.RateLimitWindow)
		if err != nil {
			log.WithContext(c.Request.Context()).WithError(err).Warn("Rate limit counter unavailable")
			c.Next()
			return
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			utils.TooManyRequestsResponse(c, utils.RateLimitWindow)
			c.Abort()
			return
		}

		c.Next()
	}
}
