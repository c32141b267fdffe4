package domain

import (
	"math"
	"time"
)

// TopFeatureCount is how many contributing features a RiskEstimate surfaces.
const TopFeatureCount = 5

// RiskEstimate is the final per-day output: fused probability, risk category,
// and the top contributing features. Immutable once created; one per
// requested forecast day per request. A day whose pipeline failed carries an
// Error annotation instead of a probability, so siblings in the same batch
// are unaffected.
type RiskEstimate struct {
	Day         int       `json:"day"`
	Probability float64   `json:"probability"`
	RiskLevel   string    `json:"risk_level,omitempty"`
	TopFeatures []string  `json:"top_features,omitempty"`
	Degraded    bool      `json:"degraded,omitempty"`
	Error       string    `json:"error,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Failed reports whether this slot carries an error annotation.
func (r RiskEstimate) Failed() bool { return r.Error != "" }

// NewRiskEstimate builds a successful per-day estimate. The probability is
// rounded to 4 decimal places, the serialized precision contract.
func NewRiskEstimate(day int, probability float64, level string, topFeatures []string, degraded bool) RiskEstimate {
	return RiskEstimate{
		Day:         day,
		Probability: math.Round(probability*10000) / 10000,
		RiskLevel:   level,
		TopFeatures: topFeatures,
		Degraded:    degraded,
		GeneratedAt: clock.Now().UTC(),
	}
}

// NewFailedEstimate marks a day slot whose pipeline failed without aborting
// the rest of the batch.
func NewFailedEstimate(day int, err error) RiskEstimate {
	return RiskEstimate{
		Day:         day,
		Error:       err.Error(),
		GeneratedAt: clock.Now().UTC(),
	}
}

// ModelSet bundles the fitted artifacts a scoring request needs: the
// normalizer schema and the ensemble scorer. Loaded once, treated as
// immutable for its lifetime, and swapped atomically on reload so concurrent
// requests never observe a half-updated set.
type ModelSet struct {
	Normalizer *Normalizer
	Scorer     *Scorer
}
