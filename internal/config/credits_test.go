package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeCreditsFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestCreditsConfigDefaultsWithoutFile(t *testing.T) {
	holder, err := NewCreditsConfigHolder(Config{}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, DefaultCreditsConfig(), holder.Get())
}

func TestCreditsConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credits.yaml")
	writeCreditsFile(t, path, "credits:\n  period_alignment: Anniversary\n  cache_ttl: 45s\n  max_deduct_amount: 500\n  max_topup_amount: 10000\n")

	holder, err := NewCreditsConfigHolder(Config{CreditsConfigFile: path}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, PeriodAlignmentAnniversary, got.PeriodAlignment)
	assert.Equal(t, 45*time.Second, got.CacheTTL)
	assert.Equal(t, int64(500), got.MaxDeductAmount)
	assert.Equal(t, int64(10000), got.MaxTopUpAmount)
}

func TestCreditsConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown alignment", "credits:\n  period_alignment: weekly\n"},
		{"negative ttl", "credits:\n  cache_ttl: -1s\n"},
		{"negative max", "credits:\n  max_deduct_amount: -3\n"},
		{"negative top-up cap", "credits:\n  max_topup_amount: -1\n"},
		{"top-up cap above ceiling", "credits:\n  max_topup_amount: 9223372036854775807\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "credits.yaml")
			writeCreditsFile(t, path, tt.body)

			_, err := NewCreditsConfigHolder(Config{CreditsConfigFile: path}, zap.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestCreditsConfigReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credits.yaml")
	writeCreditsFile(t, path, "credits:\n  cache_ttl: 10s\n")

	holder, err := NewCreditsConfigHolder(Config{CreditsConfigFile: path}, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, holder.Get().CacheTTL)

	writeCreditsFile(t, path, "credits:\n  cache_ttl: 0s\n  max_deduct_amount: 25\n")

	require.Eventually(t, func() bool {
		got := holder.Get()
		return got.CacheTTL == 0 && got.MaxDeductAmount == 25
	}, 5*time.Second, 20*time.Millisecond)
}

func TestNilHolderReturnsDefaults(t *testing.T) {
	var holder *CreditsConfigHolder
	assert.Equal(t, DefaultCreditsConfig(), holder.Get())
}

func TestCreditsConfigTopUpCapFallsBackToDefault(t *testing.T) {
	holder := NewStaticCreditsConfigHolder(CreditsConfig{})
	assert.Equal(t, DefaultMaxTopUpAmount, holder.Get().MaxTopUpAmount)

	holder.Replace(CreditsConfig{PeriodAlignment: "Anniversary", MaxTopUpAmount: 50})
	assert.Equal(t, PeriodAlignmentAnniversary, holder.Get().PeriodAlignment)
	assert.Equal(t, int64(50), holder.Get().MaxTopUpAmount)
}
