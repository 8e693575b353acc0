package observability

import (
	"strings"
	"time"

	"github.com/smallbiznis/commcredit/internal/config"
)

// Config is the resolved observability setup for one process.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	SlowQueryThreshold time.Duration
}

// LoadConfig resolves observability settings from the application config.
// Exporters default to on only when a collector endpoint is known.
func LoadConfig(cfg config.Config) Config {
	obs := cfg.Observability

	out := Config{
		ServiceName:          firstNonEmpty(cfg.AppName, "commcredit"),
		Environment:          firstNonEmpty(obs.DeploymentEnv, cfg.Environment),
		Version:              firstNonEmpty(obs.ServiceVersion, cfg.AppVersion),
		LogLevel:             firstNonEmpty(obs.LogLevel, "info"),
		LogFormat:            firstNonEmpty(obs.LogFormat, "json"),
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: firstNonEmpty(obs.OtelProtocol, "grpc"),
		OtelSamplingRatio:    obs.SamplingRatio,
		SlowQueryThreshold:   time.Duration(obs.SlowQueryMs) * time.Millisecond,
	}
	out.OtelEnabled = out.OtelExporterEndpoint != ""
	if obs.OtelEnabled != nil {
		out.OtelEnabled = *obs.OtelEnabled
	}
	if out.OtelSamplingRatio < 0 || out.OtelSamplingRatio > 1 {
		out.OtelSamplingRatio = 0.1
	}
	return out
}

// Debug turns on console-friendly logs and stack traces.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
