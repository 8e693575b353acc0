package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBalanceSaturates(t *testing.T) {
	tests := []struct {
		name          string
		base, topUps  int64
		used          int64
		wantAvailable int64
	}{
		{name: "plain", base: 100, topUps: 20, used: 30, wantAvailable: 90},
		{name: "overspent clamps to zero", base: 10, topUps: 0, used: 12, wantAvailable: 0},
		{name: "huge grant keeps the base", base: 100, topUps: math.MaxInt64, used: 0, wantAvailable: math.MaxInt64},
		{name: "huge grant after usage", base: 100, topUps: math.MaxInt64, used: 5, wantAvailable: math.MaxInt64 - 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBalance(1, ChannelSMS, Window{}, tt.base, tt.topUps, tt.used)
			assert.Equal(t, tt.wantAvailable, b.Available)
		})
	}
}

func TestAllowance(t *testing.T) {
	assert.EqualValues(t, 150, Allowance(100, 50))
	assert.EqualValues(t, int64(math.MaxInt64), Allowance(1, math.MaxInt64))
	assert.EqualValues(t, 100, Allowance(100, 0))
}
