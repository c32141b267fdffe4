package domain

import (
	"errors"
	"fmt"
)

// ErrNoModelAvailable is returned when scoring is requested but no classifier
// in the ensemble could be loaded. Fatal for scoring; other endpoints may
// continue to serve.
var ErrNoModelAvailable = errors.New("no classifier available")

// InvalidSeriesError reports a malformed or insufficient input series:
// non-uniform cadence, missing parameters, or a lookback shorter than the
// largest configured window or lag. Not retriable.
type InvalidSeriesError struct {
	Reason string
}

func (e *InvalidSeriesError) Error() string {
	return "invalid series: " + e.Reason
}

// UnknownFeatureError reports a feature present in an engineered vector but
// absent from the fitted normalizer schema. Indicates a feature/schema
// versioning bug and is never silently dropped.
type UnknownFeatureError struct {
	Name string
}

func (e *UnknownFeatureError) Error() string {
	return fmt.Sprintf("feature %q not in fitted schema", e.Name)
}

// MissingFeatureError reports a feature the fitted schema expects but the
// engineered vector does not carry. Key absence is a contract violation;
// a missing-marker value is valid data and does not trigger this error.
type MissingFeatureError struct {
	Name string
}

func (e *MissingFeatureError) Error() string {
	return fmt.Sprintf("feature %q expected by fitted schema but absent from vector", e.Name)
}

// EnsembleConfigError reports a bad persisted ensemble configuration, e.g.
// fusion weights that do not sum to 1. Fatal at load time: the scorer must
// not serve requests until the configuration is corrected.
type EnsembleConfigError struct {
	Reason string
}

func (e *EnsembleConfigError) Error() string {
	return "ensemble config: " + e.Reason
}

// UpstreamDataError wraps a failure of the weather series supplier. The core
// propagates it to the caller without retrying; retry and backoff are the
// supplier's responsibility.
type UpstreamDataError struct {
	Op  string
	Err error
}

func (e *UpstreamDataError) Error() string {
	return fmt.Sprintf("upstream weather data: %s: %v", e.Op, e.Err)
}

func (e *UpstreamDataError) Unwrap() error { return e.Err }
