package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/commcredit/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	HeaderRequestID     = "X-Request-Id"
	HeaderCorrelationID = "X-Correlation-Id"

	headerRateLimitReason = "X-Rate-Limited-Reason"
)

// MiddlewareConfig controls request logging behavior.
type MiddlewareConfig struct {
	Debug           bool
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware seeds the request scope (request, correlation and tenant ids)
// and writes one http_request entry per call.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		seedRequestScope(c)

		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		fields := requestFields(c, route, status, time.Since(start))

		var errorType string
		if lastErr := c.Errors.Last(); lastErr != nil {
			var errorCode string
			if cfg.ErrorClassifier != nil {
				errorType, errorCode = cfg.ErrorClassifier(lastErr.Err)
			}
			fields = append(fields, zap.String("error_type", errorType), zap.String("error_code", errorCode))
			if cfg.Debug {
				fields = append(fields, zap.Stack("stack"))
			}
		}

		log := FromContext(c.Request.Context())
		if ce := log.Check(requestLevel(route, status, errorType), "http_request"); ce != nil {
			ce.Write(fields...)
		}
	}
}

func seedRequestScope(c *gin.Context) {
	requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(HeaderRequestID, requestID)

	ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
	ctx = obscontext.WithCorrelationID(ctx, strings.TrimSpace(c.GetHeader(HeaderCorrelationID)))
	ctx, correlationID := obscontext.EnsureCorrelationID(ctx)
	c.Header(HeaderCorrelationID, correlationID)

	if tenantID := strings.TrimSpace(c.Param("tenantId")); tenantID != "" {
		ctx = obscontext.WithTenantID(ctx, tenantID)
	}
	c.Request = c.Request.WithContext(ctx)
}

func requestFields(c *gin.Context, route string, status int, elapsed time.Duration) []zap.Field {
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("route", route),
		zap.Int("status", status),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
		zap.Int("bytes_out", max(c.Writer.Size(), 0)),
	}
	if channel := strings.TrimSpace(c.Param("channel")); channel != "" {
		fields = append(fields, zap.String("channel", strings.ToLower(channel)))
	}
	if reason := c.Writer.Header().Get(headerRateLimitReason); reason != "" {
		fields = append(fields, zap.String("rate_limited_reason", reason))
	}
	return fields
}

// requestLevel keeps probes and refused deductions at debug; a refusal is a
// normal outcome for a tenant out of credit.
func requestLevel(route string, status int, errorType string) zapcore.Level {
	switch {
	case strings.EqualFold(route, "/metrics"), strings.EqualFold(route, "/health"):
		return zapcore.DebugLevel
	case errorType == "insufficient_credits":
		return zapcore.DebugLevel
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status == http.StatusTooManyRequests:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
