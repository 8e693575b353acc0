package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PeriodAlignmentCalendar    = "calendar"
	PeriodAlignmentAnniversary = "anniversary"
)

// CreditsConfig is the hot-reloadable part of the metering configuration.
type CreditsConfig struct {
	PeriodAlignment string        `mapstructure:"period_alignment"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	// MaxDeductAmount caps a single deduction; zero disables the cap.
	MaxDeductAmount int64 `mapstructure:"max_deduct_amount"`
	// MaxTopUpAmount caps a single grant; zero falls back to DefaultMaxTopUpAmount.
	MaxTopUpAmount int64 `mapstructure:"max_topup_amount"`
}

// DefaultMaxTopUpAmount keeps per-window top-up sums far below the int64 range.
const DefaultMaxTopUpAmount int64 = 1_000_000_000

func DefaultCreditsConfig() CreditsConfig {
	return CreditsConfig{
		PeriodAlignment: PeriodAlignmentCalendar,
		CacheTTL:        30 * time.Second,
		MaxDeductAmount: 0,
		MaxTopUpAmount:  DefaultMaxTopUpAmount,
	}
}

type CreditsConfigHolder struct {
	current atomic.Value // holds CreditsConfig
}

// NewStaticCreditsConfigHolder returns a holder that never reloads.
func NewStaticCreditsConfigHolder(cfg CreditsConfig) *CreditsConfigHolder {
	holder := &CreditsConfigHolder{}
	holder.current.Store(normalizeCreditsConfig(cfg))
	return holder
}

func NewCreditsConfigHolder(appCfg Config, log *zap.Logger) (*CreditsConfigHolder, error) {
	log = log.Named("config.credits")
	v := viper.New()

	if appCfg.CreditsConfigFile != "" {
		v.SetConfigFile(appCfg.CreditsConfigFile)
	} else {
		v.SetConfigName("credits")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/commcredit")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("COMMCREDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCreditsConfig()
	v.SetDefault("credits.period_alignment", defaults.PeriodAlignment)
	v.SetDefault("credits.cache_ttl", defaults.CacheTTL)
	v.SetDefault("credits.max_deduct_amount", defaults.MaxDeductAmount)
	v.SetDefault("credits.max_topup_amount", defaults.MaxTopUpAmount)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg CreditsConfig
	if err := v.UnmarshalKey("credits", &cfg); err != nil {
		return nil, err
	}
	if err := validateCreditsConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticCreditsConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CreditsConfig
		if err := v.UnmarshalKey("credits", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateCreditsConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.Replace(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *CreditsConfigHolder) Get() CreditsConfig {
	if h == nil {
		return DefaultCreditsConfig()
	}
	return h.current.Load().(CreditsConfig)
}

// Replace swaps the active config; readers see either the old or the new value.
func (h *CreditsConfigHolder) Replace(cfg CreditsConfig) {
	h.current.Store(normalizeCreditsConfig(cfg))
}

func validateCreditsConfig(cfg CreditsConfig) error {
	switch strings.ToLower(strings.TrimSpace(cfg.PeriodAlignment)) {
	case "", PeriodAlignmentCalendar, PeriodAlignmentAnniversary:
	default:
		return fmt.Errorf("credits.period_alignment %q is not supported", cfg.PeriodAlignment)
	}
	if cfg.CacheTTL < 0 {
		return errors.New("credits.cache_ttl cannot be negative")
	}
	if cfg.MaxDeductAmount < 0 {
		return errors.New("credits.max_deduct_amount cannot be negative")
	}
	if cfg.MaxTopUpAmount < 0 || cfg.MaxTopUpAmount > DefaultMaxTopUpAmount {
		return fmt.Errorf("credits.max_topup_amount must be between 0 and %d", DefaultMaxTopUpAmount)
	}
	return nil
}

func normalizeCreditsConfig(cfg CreditsConfig) CreditsConfig {
	cfg.PeriodAlignment = strings.ToLower(strings.TrimSpace(cfg.PeriodAlignment))
	if cfg.PeriodAlignment == "" {
		cfg.PeriodAlignment = PeriodAlignmentCalendar
	}
	if cfg.MaxTopUpAmount <= 0 {
		cfg.MaxTopUpAmount = DefaultMaxTopUpAmount
	}
	return cfg
}
