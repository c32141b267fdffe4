package domain

import (
	"fmt"
	"math"
)

// weightTolerance bounds how far the configured fusion weights may drift
// from summing to exactly 1 before the configuration is rejected.
const weightTolerance = 1e-6

// Classifier is the single capability both ensemble members expose.
// Implementations must be immutable after load and safe for concurrent use.
type Classifier interface {
	// PredictProba returns the positive-class (outbreak) probability in [0,1]
	// for a normalized feature vector in fitted schema order.
	PredictProba(features []float64) (float64, error)

	// FeatureImportances returns the trained per-feature importance weights,
	// non-negative and summing to 1 across the model's schema.
	FeatureImportances() map[string]float64
}

// WeightedClassifier pairs an ensemble member with its fusion weight.
// Model is nil when the member failed to load; the slot keeps its weight so
// the remaining members renormalize against the full configuration.
type WeightedClassifier struct {
	Name   string
	Weight float64
	Model  Classifier
}

// RiskThresholds are the fused-probability breakpoints for categorization.
// Probabilities below Medium are low risk, below High medium, otherwise high;
// both breakpoints are inclusive on the upper band.
type RiskThresholds struct {
	Medium float64
	High   float64
}

// DefaultRiskThresholds mirrors the persisted production configuration.
var DefaultRiskThresholds = RiskThresholds{Medium: 0.33, High: 0.66}

// Risk categories.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Level maps a fused probability to its risk category.
func (t RiskThresholds) Level(probability float64) string {
	switch {
	case probability < t.Medium:
		return RiskLow
	case probability < t.High:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Scorer fuses an ordered list of weighted classifiers into one outbreak
// probability. Weights come from persisted configuration, never re-derived
// per request.
type Scorer struct {
	models     []WeightedClassifier
	thresholds RiskThresholds
}

// NewScorer validates the persisted ensemble configuration and builds a
// scorer. Weight or threshold violations yield an EnsembleConfigError, which
// must prevent the scorer from ever serving.
func NewScorer(models []WeightedClassifier, thresholds RiskThresholds) (*Scorer, error) {
	if len(models) == 0 {
		return nil, &EnsembleConfigError{Reason: "no models configured"}
	}

	var sum float64
	for _, m := range models {
		if m.Name == "" {
			return nil, &EnsembleConfigError{Reason: "model entry with empty name"}
		}
		if m.Weight < 0 {
			return nil, &EnsembleConfigError{Reason: fmt.Sprintf("model %q has negative weight %g", m.Name, m.Weight)}
		}
		sum += m.Weight
	}
	if math.Abs(sum-1) > weightTolerance {
		return nil, &EnsembleConfigError{Reason: fmt.Sprintf("model weights sum to %g, want 1", sum)}
	}

	if thresholds.Medium <= 0 || thresholds.High <= thresholds.Medium || thresholds.High > 1 {
		return nil, &EnsembleConfigError{
			Reason: fmt.Sprintf("risk thresholds %g/%g not strictly ordered in (0,1]", thresholds.Medium, thresholds.High),
		}
	}

	return &Scorer{models: models, thresholds: thresholds}, nil
}

// Models returns the configured (model, weight) list, loaded or not.
func (s *Scorer) Models() []WeightedClassifier { return s.models }

// Thresholds returns the configured risk breakpoints.
func (s *Scorer) Thresholds() RiskThresholds { return s.thresholds }

// LoadedCount returns how many configured members have a loaded model.
func (s *Scorer) LoadedCount() int {
	var n int
	for _, m := range s.models {
		if m.Model != nil {
			n++
		}
	}
	return n
}

// Score fuses the loaded members' probabilities by their configured weights,
// renormalized over the members actually available. With every member loaded
// this is the plain weighted average; with a subset it degrades gracefully
// (a single survivor contributes its probability unchanged) and the degraded
// flag is set so callers can surface reduced confidence. Scoring with no
// loaded member fails with ErrNoModelAvailable.
func (s *Scorer) Score(features []float64) (probability float64, degraded bool, err error) {
	var fused, weightSum float64
	var available int

	for _, m := range s.models {
		if m.Model == nil {
			continue
		}
		p, err := m.Model.PredictProba(features)
		if err != nil {
			return 0, false, fmt.Errorf("model %s: %w", m.Name, err)
		}
		fused += m.Weight * p
		weightSum += m.Weight
		available++
	}

	if available == 0 {
		return 0, false, ErrNoModelAvailable
	}
	if weightSum > 0 {
		fused /= weightSum
	}

	return fused, available < len(s.models), nil
}
