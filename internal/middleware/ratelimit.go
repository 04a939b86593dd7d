package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/baselineanalytics/portal/internal/ratelimit"
	"github.com/baselineanalytics/portal/pkg/errors"
	"github.com/baselineanalytics/portal/pkg/logger"
	"github.com/baselineanalytics/portal/pkg/metrics"
	"github.com/baselineanalytics/portal/pkg/response"
)

// CtxRateLimitedKey marks requests rejected by RateLimit.
const CtxRateLimitedKey = "rateLimited"

// RateLimit admits at most policy.MaxRequests per client identifier within a
// fixed window. scope namespaces the counters and labels the metric.
func RateLimit(limiter *ratelimit.Limiter, policy ratelimit.Policy, scope string) gin.HandlerFunc {
	log := logger.WithModule("ratelimit")

	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		identifier := scope + ":" + ratelimit.ClientIP(c.Request.Header)
		result, err := limiter.Check(c.Request.Context(), identifier, policy)
		if err != nil {
			log.Error("rate limit check failed", zap.String("scope", scope), zap.Error(err))
			response.Abort(c, errors.ErrUpstream.WithInternal(err))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Success {
			retry := result.RetryAfter(time.Now())
			seconds := int((retry + time.Second - 1) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.Set(CtxRateLimitedKey, true)
			metrics.RateLimited.WithLabelValues(scope).Inc()
			response.Abort(c, errors.ErrRateLimit)
			return
		}

		c.Next()
	}
}
