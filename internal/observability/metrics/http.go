package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics captures low-cardinality HTTP server metrics.
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	inFlight        metric.Int64UpDownCounter
}

func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "commcredit"
	}
	meter := provider.Meter(name + "/http")

	requestDuration, err := meter.Float64Histogram("http.server.duration_ms")
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("http.server.in_flight")
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requestDuration: requestDuration,
		inFlight:        inFlight,
	}, nil
}

// GinMiddleware records request duration and in-flight metrics.
// Routes are recorded by template so tenant ids never become labels.
func GinMiddleware(m *HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		endpoint := normalizeEndpoint(c.FullPath())
		ctx := c.Request.Context()
		endpointAttr := metric.WithAttributes(FilterAttributes(attribute.String("endpoint", endpoint))...)
		m.inFlight.Add(ctx, 1, endpointAttr)
		start := time.Now()
		c.Next()
		m.inFlight.Add(ctx, -1, endpointAttr)

		attrs := FilterAttributes(
			attribute.String("endpoint", endpoint),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		m.requestDuration.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
	}
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "unknown"
	}
	return endpoint
}
