package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nimbusworks/nimbus/pkg/constants"
	apperrors "github.com/nimbusworks/nimbus/pkg/errors"
	"github.com/nimbusworks/nimbus/pkg/logger"

	"github.com/nimbusworks/nimbus/internal/domain/service"
	"github.com/nimbusworks/nimbus/internal/infrastructure/monitoring"
)

// RateLimit enforces a fixed-window limit per caller on one scope. Before
// authentication the caller key is the client IP; after it, the user ID.
//
// A limiter outage fails open: rejecting all traffic because Redis blinked
// would be a worse failure than briefly unlimited traffic.
func RateLimit(
	limiter service.RateLimiter,
	scope constants.RateLimitScope,
	limit int,
	window time.Duration,
	metrics *monitoring.Metrics,
	log logger.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := UserIDFrom(c)
		if caller == "" {
			caller = c.ClientIP()
		}
		key := string(scope) + ":" + caller

		allowed, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Warn(c.Request.Context(), "rate limiter unavailable, failing open",
				logger.String("scope", string(scope)))
			c.Next()
			return
		}
		if !allowed {
			metrics.RecordRateLimitHit(string(scope))
			abortWithError(c, apperrors.ErrRateLimited(string(scope)))
			return
		}
		c.Next()
	}
}
