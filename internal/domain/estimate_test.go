package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRiskEstimate(t *testing.T) {
	frozen := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	est := NewRiskEstimate(3, 0.5600000001, RiskMedium, []string{"humidity"}, false)

	assert.Equal(t, 3, est.Day)
	assert.Equal(t, 0.56, est.Probability)
	assert.Equal(t, RiskMedium, est.RiskLevel)
	assert.Equal(t, []string{"humidity"}, est.TopFeatures)
	assert.False(t, est.Degraded)
	assert.False(t, est.Failed())
	assert.Equal(t, frozen, est.GeneratedAt)
}

func TestNewRiskEstimateRounding(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.123449, 0.1234},
		{0.123456, 0.1235},
		{0.99995, 1},
		{0, 0},
		{1, 1},
	}
	for _, tc := range tests {
		est := NewRiskEstimate(1, tc.in, RiskLow, nil, false)
		assert.Equal(t, tc.want, est.Probability, "in=%g", tc.in)
	}
}

func TestNewFailedEstimate(t *testing.T) {
	est := NewFailedEstimate(5, errors.New("forecast horizon of 72h does not cover day 5"))

	assert.Equal(t, 5, est.Day)
	assert.True(t, est.Failed())
	assert.Contains(t, est.Error, "does not cover day 5")
	assert.Zero(t, est.Probability)
	assert.Empty(t, est.RiskLevel)
	require.False(t, est.GeneratedAt.IsZero())
}
