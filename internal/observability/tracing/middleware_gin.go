package tracing

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/commcredit/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span per request. Refused deductions are
// recorded as an event, not as a span error.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("commcredit/http")
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+strings.ToUpper(c.Request.Method), trace.WithSpanKind(trace.SpanKindServer))

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			if member, err := baggage.NewMember("request_id", requestID); err == nil {
				if bag, err := baggage.New(member); err == nil {
					ctx = baggage.ContextWithBaggage(ctx, bag)
				}
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		span.SetName("HTTP " + strings.ToUpper(c.Request.Method) + " " + route)
		actorType, _ := obscontext.ActorFromContext(c.Request.Context())
		span.SetAttributes(SafeAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("credit.channel", strings.ToLower(c.Param("channel"))),
			attribute.String("credit.tenant_id", obscontext.TenantIDFromContext(c.Request.Context())),
			attribute.String("credit.actor_type", actorType),
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		)...)
		if c.Writer.Status() == http.StatusPaymentRequired {
			span.AddEvent("credit.refused")
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(SafeError(lastErr.Err))
			}
			span.SetStatus(codes.Error, "request error")
		}
		span.End()
	}
}
