package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	OutcomeApplied      = "applied"
	OutcomeInsufficient = "insufficient"
	OutcomeError        = "error"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	deductions       metric.Int64Counter
	deductedUnits    metric.Int64Counter
	topUps           metric.Int64Counter
	topUpUnits       metric.Int64Counter
	rateLimitAllowed metric.Int64Counter
	rateLimitDenied  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "commcredit"
	}
	meter := provider.Meter(name)

	deductions, err := meter.Int64Counter("commcredit_deductions_total")
	if err != nil {
		return nil, err
	}
	deductedUnits, err := meter.Int64Counter("commcredit_deducted_units_total")
	if err != nil {
		return nil, err
	}
	topUps, err := meter.Int64Counter("commcredit_topups_total")
	if err != nil {
		return nil, err
	}
	topUpUnits, err := meter.Int64Counter("commcredit_topup_units_total")
	if err != nil {
		return nil, err
	}
	rateLimitAllowed, err := meter.Int64Counter("commcredit_rate_limit_allowed_total")
	if err != nil {
		return nil, err
	}
	rateLimitDenied, err := meter.Int64Counter("commcredit_rate_limit_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		deductions:       deductions,
		deductedUnits:    deductedUnits,
		topUps:           topUps,
		topUpUnits:       topUpUnits,
		rateLimitAllowed: rateLimitAllowed,
		rateLimitDenied:  rateLimitDenied,
	}, nil
}

// RecordDeduction counts a deduction attempt; units are only added when applied.
func (m *Metrics) RecordDeduction(ctx context.Context, channel, outcome string, amount int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("channel", strings.TrimSpace(channel)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.deductions.Add(ctx, 1, metric.WithAttributes(attrs...))
	if outcome == OutcomeApplied && amount > 0 {
		m.deductedUnits.Add(ctx, amount, metric.WithAttributes(FilterAttributes(attribute.String("channel", channel))...))
	}
}

// RecordTopUp counts a persisted top-up grant.
func (m *Metrics) RecordTopUp(ctx context.Context, channel string, amount int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("channel", strings.TrimSpace(channel)))
	m.topUps.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.topUpUnits.Add(ctx, amount, metric.WithAttributes(attrs...))
}

// RecordRateLimitAllowed increments rate limit allow counts.
func (m *Metrics) RecordRateLimitAllowed(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("endpoint", strings.TrimSpace(endpoint)))
	m.rateLimitAllowed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRateLimitDenied increments rate limit deny counts.
func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.rateLimitDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// tenant_id is unbounded and never a metric label.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"channel":     {},
	"outcome":     {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
