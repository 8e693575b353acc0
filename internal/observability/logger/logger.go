package logger

import (
	"context"
	"fmt"
	"strings"
	"time"

	obscontext "github.com/smallbiznis/commcredit/internal/observability/context"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the zap logger.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	Level       string
	Format      string
	Debug       bool

	SamplingInitial     int
	SamplingThereafter  int
	SamplingWindow      time.Duration
	IncludeCaller       bool
	IncludeStackOnError bool
}

// Sampling defaults: the first 100 identical entries per second are kept,
// then one in 100.
const (
	defaultSampleInitial    = 100
	defaultSampleThereafter = 100
	defaultSampleWindow     = time.Second
)

// New builds the process logger, installs it as the zap global and syncs it on stop.
func New(lc fx.Lifecycle, cfg Config) (*zap.Logger, error) {
	zapCfg, err := buildZapConfig(cfg)
	if err != nil {
		return nil, err
	}

	log, err := zapCfg.Build(buildOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	log = log.With(
		zap.String("service", orDefault(cfg.ServiceName, "commcredit")),
		zap.String("env", strings.TrimSpace(cfg.Environment)),
		zap.String("version", strings.TrimSpace(cfg.Version)),
	)
	zap.ReplaceGlobals(log)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				_ = log.Sync()
				return nil
			},
		})
	}
	return log, nil
}

func buildZapConfig(cfg Config) (zap.Config, error) {
	format := normalizeFormat(cfg.Format)

	zapCfg := zap.NewProductionConfig()
	if cfg.Debug && format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Encoding = format
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.OutputPaths = []string{"stdout"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	// Sampling is installed by buildOptions.
	zapCfg.Sampling = nil

	level := orDefault(cfg.Level, "info")
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return zap.Config{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zapCfg, nil
}

func buildOptions(cfg Config) []zap.Option {
	var opts []zap.Option
	if cfg.IncludeCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.IncludeStackOnError {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	initial, thereafter, window := cfg.SamplingInitial, cfg.SamplingThereafter, cfg.SamplingWindow
	if initial <= 0 {
		initial = defaultSampleInitial
	}
	if thereafter <= 0 {
		thereafter = defaultSampleThereafter
	}
	if window <= 0 {
		window = defaultSampleWindow
	}
	return append(opts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewSamplerWithOptions(core, window, initial, thereafter)
	}))
}

func orDefault(value, def string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return def
}

func normalizeFormat(format string) string {
	if strings.ToLower(strings.TrimSpace(format)) == "console" {
		return "console"
	}
	return "json"
}

// FromContext returns a logger enriched with request-scoped fields.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext enriches the provided logger with correlation fields.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}

	actorType, actorID := obscontext.ActorFromContext(ctx)
	fields := []zap.Field{
		zap.String("request_id", obscontext.RequestIDFromContext(ctx)),
		zap.String("correlation_id", obscontext.CorrelationIDFromContext(ctx)),
		zap.String("tenant_id", obscontext.TenantIDFromContext(ctx)),
		zap.String("actor_type", actorType),
		zap.String("actor_id", actorID),
	}
	fields = append(fields, traceFieldsFromContext(ctx)...)

	return base.With(fields...)
}

// WithTenant adds the tenant identifier to the logger.
func WithTenant(log *zap.Logger, tenantID string) *zap.Logger {
	if log == nil {
		return nil
	}
	return log.With(zap.String("tenant_id", strings.TrimSpace(tenantID)))
}

func traceFieldsFromContext(ctx context.Context) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return []zap.Field{
			zap.String("trace_id", ""),
			zap.String("span_id", ""),
		}
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
