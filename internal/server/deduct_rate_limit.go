package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/commcredit/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/commcredit/internal/observability/metrics"
	"go.uber.org/zap"
)

const rateLimitReasonTenantRate = "tenant-rate"

func (s *Server) DeductRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.deductLimiter.Enabled() {
			c.Next()
			return
		}

		tenantID := strings.TrimSpace(c.Param("tenantId"))
		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		res, err := s.deductLimiter.AllowTenant(ctx, tenantID)
		if err != nil {
			logger.FromContext(ctx).Warn("deduct rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if !res.Allowed {
			denyDeductRateLimit(c, endpoint, rateLimitReasonTenantRate, res.RetryAfter, s.obsMetrics)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func denyDeductRateLimit(c *gin.Context, endpoint, reason string, retryAfter time.Duration, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("deduct rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	seconds := int(retryAfter.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.Itoa(seconds))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
