package observability

import (
	"time"

	"github.com/smallbiznis/commcredit/internal/observability/logger"
	"github.com/smallbiznis/commcredit/internal/observability/metrics"
	"github.com/smallbiznis/commcredit/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	gormlogger "gorm.io/gorm/logger"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideGormLoggerConfig,
		provideTracingConfig,
		tracing.NewProvider,
		provideMetricsConfig,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.NewLedgerMetrics,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		Debug:               cfg.Debug(),
		IncludeCaller:       true,
		IncludeStackOnError: cfg.Debug(),
	}
}

// SQL statements log at Info in debug; otherwise only failures and slow queries surface.
func provideGormLoggerConfig(cfg Config) logger.GormLoggerConfig {
	out := logger.DefaultGormLoggerConfig()
	if cfg.Debug() {
		out.Level = gormlogger.Info
	}
	if cfg.SlowQueryThreshold > 0 {
		out.SlowThreshold = cfg.SlowQueryThreshold
	}
	if out.SlowThreshold < 10*time.Millisecond {
		out.SlowThreshold = 10 * time.Millisecond
	}
	return out
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.OtelEnabled,
		ServiceName:      cfg.ServiceName,
		ServiceVersion:   cfg.Version,
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		SamplingRatio:    cfg.OtelSamplingRatio,
	}
}

func provideMetricsConfig(cfg Config) metrics.Config {
	return metrics.Config{
		Enabled:          cfg.OtelEnabled,
		ExporterEndpoint: cfg.OtelExporterEndpoint,
		ExporterProtocol: cfg.OtelExporterProtocol,
		ServiceName:      cfg.ServiceName,
		Environment:      cfg.Environment,
	}
}
