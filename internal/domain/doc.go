// Package domain models weather-driven plant disease outbreak prediction:
// hourly weather series, engineered features, fitted normalization, and the
// weighted classifier ensemble.
//
// # Data flow
//
// A Series (≈30 days of history concatenated with a ≈7 day forecast, hourly
// cadence) is turned into one FeatureVector per requested forecast day by the
// Engine, standardized by the fitted Normalizer, scored by the ensemble
// Scorer, and explained by TopFeatures. All stages are pure and operate on
// in-memory data; no stage performs I/O.
//
// # Feature naming
//
// Feature names derive deterministically from (parameter, transform, size):
//
//	temperature_2m_rolling_24h_mean   aggregation over the trailing 24 hours
//	temperature_2m_lag_6h             raw value 6 hours before the reference
//	temperature_2m_delta_12h          change versus 12 hours before
//	precipitation_wind_speed_10m_interaction  product of 24h rolling means
//	leaf_wetness_duration_24h         disease index (registry-defined)
//
// The same name always denotes the same derivation; the fitted normalizer
// schema is keyed by these names, so configuration changes require refitting.
//
// # Reference timestamp and leakage
//
// Every feature for forecast day d is anchored at the last hour of day d.
// Rolling windows cover the trailing span ending there, lags and deltas reach
// only backwards, so no derivation reads data past the day being scored.
//
// # Missing data
//
// NaN is the reserved missing marker for both observations and features. A
// FeatureVector always contains every configured name: key absence is a
// contract violation (MissingFeatureError downstream), a NaN value is valid
// data awaiting imputation. Rolling windows below 50% sample coverage go
// missing rather than aggregating a sparse sample; the Normalizer imputes
// missing features with the fitted mean before scaling.
//
// # Degraded scoring
//
// The ensemble fuses an ordered (classifier, weight) list. When a configured
// member is not loaded, the remaining weights are renormalized and results
// are flagged degraded; with no member loaded, scoring fails with
// ErrNoModelAvailable.
package domain
