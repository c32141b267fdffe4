package domain

import (
	"fmt"
	"math"
)

// AggFunc names a rolling-window aggregation.
type AggFunc string

const (
	AggMean AggFunc = "mean"
	AggMin  AggFunc = "min"
	AggMax  AggFunc = "max"
	AggStd  AggFunc = "std"
	AggSum  AggFunc = "sum"
)

// InteractionPair names two parameters whose 24h rolling means are multiplied
// into a single interaction feature.
type InteractionPair struct {
	A string
	B string
}

// FeatureConfig enumerates every derivation the engine performs. The fitted
// normalizer schema is keyed by the names this configuration generates, so a
// deployed configuration must not change without refitting.
type FeatureConfig struct {
	Parameters        []string
	RollingWindows    []int // hours
	LagHours          []int
	DeltaHours        []int
	Aggregations      []AggFunc
	InteractionPairs  []InteractionPair
	InteractionWindow int // hours; window of the rolling means being multiplied
	MaxLeadDays       int
}

// DefaultFeatureConfig returns the configuration the production models were
// trained with.
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		Parameters:     BaseParameters,
		RollingWindows: []int{3, 6, 12, 24, 48, 72},
		LagHours:       []int{1, 3, 6, 12, 24, 48, 72},
		DeltaHours:     []int{1, 3, 6, 12, 24},
		Aggregations:   []AggFunc{AggMean, AggMin, AggMax, AggStd, AggSum},
		InteractionPairs: []InteractionPair{
			{A: ParamTemperature, B: ParamHumidity},
			{A: ParamPrecipitation, B: ParamWindSpeed},
			{A: ParamTemperature, B: ParamCloudCover},
			{A: ParamHumidity, B: ParamCloudCover},
			{A: ParamSoilMoisture, B: ParamSoilTemp},
			{A: ParamPrecipitation, B: ParamHumidity},
		},
		InteractionWindow: 24,
		MaxLeadDays:       7,
	}
}

// MinLookbackHours returns the historical depth the largest configured
// window or lag requires.
func (c FeatureConfig) MinLookbackHours() int {
	longest := 0
	for _, w := range c.RollingWindows {
		if w > longest {
			longest = w
		}
	}
	for _, l := range c.LagHours {
		if l > longest {
			longest = l
		}
	}
	for _, d := range c.DeltaHours {
		if d > longest {
			longest = d
		}
	}
	return longest
}

// FeatureVector maps feature name to value for one target day. Every
// configured feature name is present; missing data carries the NaN marker.
type FeatureVector map[string]float64

// Engine derives a FeatureVector from a Series for one forecast day.
// It holds only immutable configuration and is safe for concurrent use.
type Engine struct {
	cfg FeatureConfig
}

// NewEngine creates a feature engine for the given configuration.
func NewEngine(cfg FeatureConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Config returns the engine's configuration.
func (e *Engine) Config() FeatureConfig { return e.cfg }

// MinLookbackHours returns the lookback the engine requires of a Series.
func (e *Engine) MinLookbackHours() int { return e.cfg.MinLookbackHours() }

// FeatureNames enumerates the complete engineered name set in its canonical
// order: per parameter (rolling, then lag, then delta), then interactions,
// then disease indices. The order is stable across processes; fitting and
// serving must agree on it.
func (e *Engine) FeatureNames() []string {
	names := make([]string, 0, e.featureCount())
	for _, p := range e.cfg.Parameters {
		for _, w := range e.cfg.RollingWindows {
			for _, fn := range e.cfg.Aggregations {
				names = append(names, rollingName(p, w, fn))
			}
		}
		for _, l := range e.cfg.LagHours {
			names = append(names, lagName(p, l))
		}
		for _, d := range e.cfg.DeltaHours {
			names = append(names, deltaName(p, d))
		}
	}
	for _, pair := range e.cfg.InteractionPairs {
		names = append(names, interactionName(pair))
	}
	for _, idx := range diseaseIndices {
		names = append(names, idx.name)
	}
	return names
}

func (e *Engine) featureCount() int {
	perParam := len(e.cfg.RollingWindows)*len(e.cfg.Aggregations) + len(e.cfg.LagHours) + len(e.cfg.DeltaHours)
	return len(e.cfg.Parameters)*perParam + len(e.cfg.InteractionPairs) + len(diseaseIndices)
}

func rollingName(param string, window int, fn AggFunc) string {
	return fmt.Sprintf("%s_rolling_%dh_%s", param, window, fn)
}

func lagName(param string, lag int) string {
	return fmt.Sprintf("%s_lag_%dh", param, lag)
}

func deltaName(param string, delta int) string {
	return fmt.Sprintf("%s_delta_%dh", param, delta)
}

func interactionName(pair InteractionPair) string {
	return fmt.Sprintf("%s_%s_interaction", pair.A, pair.B)
}

// Vector engineers all configured features for forecast day (1-based).
// The reference timestamp is the last hour of the target day; every rolling
// window and lag is anchored there, so no feature ever reads past it
// (leakage-safe by construction).
func (e *Engine) Vector(s *Series, day int, disease string) (FeatureVector, error) {
	if day < 1 || day > e.cfg.MaxLeadDays {
		return nil, &InvalidSeriesError{Reason: fmt.Sprintf("lead day %d outside 1..%d", day, e.cfg.MaxLeadDays)}
	}
	if err := s.Validate(e.MinLookbackHours()); err != nil {
		return nil, err
	}

	ref := s.HistoryHours() + day*HoursPerDay - 1
	if ref >= s.Len() {
		return nil, &InvalidSeriesError{
			Reason: fmt.Sprintf("forecast horizon of %dh does not cover day %d", s.ForecastHours(), day),
		}
	}

	vec := make(FeatureVector, e.featureCount())

	for _, p := range e.cfg.Parameters {
		col := s.Values[p]
		for _, w := range e.cfg.RollingWindows {
			for _, fn := range e.cfg.Aggregations {
				vec[rollingName(p, w, fn)] = rollingAgg(col, ref, w, fn)
			}
		}
		for _, l := range e.cfg.LagHours {
			vec[lagName(p, l)] = valueAt(col, ref-l)
		}
		for _, d := range e.cfg.DeltaHours {
			vec[deltaName(p, d)] = delta(col, ref, d)
		}
	}

	for _, pair := range e.cfg.InteractionPairs {
		a := rollingAgg(s.Values[pair.A], ref, e.cfg.InteractionWindow, AggMean)
		b := rollingAgg(s.Values[pair.B], ref, e.cfg.InteractionWindow, AggMean)
		if IsMissing(a) || IsMissing(b) {
			vec[interactionName(pair)] = Missing()
		} else {
			vec[interactionName(pair)] = a * b
		}
	}

	profile := ProfileFor(disease)
	for _, idx := range diseaseIndices {
		vec[idx.name] = idx.fn(s, ref, profile)
	}

	return vec, nil
}

// valueAt is a bounds-safe column read returning the missing marker for
// indices before the series start.
func valueAt(col []float64, idx int) float64 {
	if idx < 0 || idx >= len(col) {
		return Missing()
	}
	return col[idx]
}

// delta computes value(ref) - value(ref-period); missing if either endpoint is.
func delta(col []float64, ref, period int) float64 {
	now := valueAt(col, ref)
	then := valueAt(col, ref-period)
	if IsMissing(now) || IsMissing(then) {
		return Missing()
	}
	return now - then
}

// rollingAgg aggregates col over the trailing window ending at end inclusive.
// Windows that extend before the series start are computed over the available
// prefix; when fewer than 50% of the expected samples are present (whether
// truncated or observed-missing) the result is the missing marker rather than
// a value computed on a sparse sample.
func rollingAgg(col []float64, end, window int, fn AggFunc) float64 {
	if len(col) == 0 {
		return Missing()
	}
	lo := end - window + 1
	if lo < 0 {
		lo = 0
	}

	var (
		count int
		sum   float64
		minV  = math.Inf(1)
		maxV  = math.Inf(-1)
	)
	values := make([]float64, 0, window)
	for i := lo; i <= end && i < len(col); i++ {
		v := col[i]
		if IsMissing(v) {
			continue
		}
		count++
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		values = append(values, v)
	}

	if 2*count < window {
		return Missing()
	}

	switch fn {
	case AggMean:
		return sum / float64(count)
	case AggMin:
		return minV
	case AggMax:
		return maxV
	case AggSum:
		return sum
	case AggStd:
		// Sample standard deviation; undefined below two samples.
		if count < 2 {
			return Missing()
		}
		mean := sum / float64(count)
		var ss float64
		for _, v := range values {
			d := v - mean
			ss += d * d
		}
		return math.Sqrt(ss / float64(count-1))
	default:
		return Missing()
	}
}
