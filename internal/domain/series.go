package domain

import (
	"fmt"
	"math"
	"time"
)

// HoursPerDay is the fixed cadence multiplier between forecast days and
// series indices.
const HoursPerDay = 24

// Canonical hourly parameter names, matching the Open-Meteo variable names
// the models were trained against.
const (
	ParamTemperature    = "temperature_2m"
	ParamHumidity       = "relative_humidity_2m"
	ParamDewPoint       = "dew_point_2m"
	ParamPrecipitation  = "precipitation"
	ParamWindSpeed      = "wind_speed_10m"
	ParamPressure       = "pressure_msl"
	ParamCloudCover     = "cloud_cover"
	ParamRadiation      = "shortwave_radiation"
	ParamSoilTemp       = "soil_temperature_0cm"
	ParamSoilMoisture   = "soil_moisture_0_1cm"
	ParamVPD            = "vapour_pressure_deficit"
	ParamEvapotranspire = "evapotranspiration"
)

// BaseParameters lists every hourly parameter the feature engine sweeps.
// Order is part of the feature-name contract: the engineered name set is
// enumerated in this order, so it must not be reshuffled once a normalizer
// schema has been fitted.
var BaseParameters = []string{
	ParamTemperature,
	ParamHumidity,
	ParamDewPoint,
	ParamPrecipitation,
	ParamWindSpeed,
	ParamPressure,
	ParamCloudCover,
	ParamRadiation,
	ParamSoilTemp,
	ParamSoilMoisture,
	ParamVPD,
	ParamEvapotranspire,
}

// IsMissing reports whether v is the reserved missing marker (NaN).
// Observations and engineered features both use NaN for "value not available";
// downstream code must never treat key absence as missing data.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Missing returns the reserved missing marker.
func Missing() float64 { return math.NaN() }

// Series is a contiguous hourly weather sequence for one location: a
// historical lookback concatenated with a forecast horizon. Columns are
// indexed by hour offset from Start, so uniform cadence holds by
// construction; the supplier that builds a Series is responsible for
// rejecting timestamp gaps (see ValidateHourlyTimes).
//
// A Series is owned by the request that fetched it and is never mutated
// after construction.
type Series struct {
	Latitude      float64
	Longitude     float64
	Start         time.Time
	ForecastStart time.Time
	Values        map[string][]float64
}

// Len returns the number of hourly observations per column.
func (s *Series) Len() int {
	for _, col := range s.Values {
		return len(col)
	}
	return 0
}

// HistoryHours returns the length of the historical lookback.
func (s *Series) HistoryHours() int {
	return int(s.ForecastStart.Sub(s.Start) / time.Hour)
}

// ForecastHours returns the length of the forecast horizon.
func (s *Series) ForecastHours() int {
	return s.Len() - s.HistoryHours()
}

// At returns the value of param at hour index idx, or the missing marker when
// the index is out of range or the parameter was never observed.
func (s *Series) At(param string, idx int) float64 {
	col, ok := s.Values[param]
	if !ok || idx < 0 || idx >= len(col) {
		return Missing()
	}
	return col[idx]
}

// Validate checks the structural invariants required before feature
// engineering: non-empty equal-length columns, an hour-aligned forecast
// boundary inside the series, and a lookback covering minLookbackHours.
func (s *Series) Validate(minLookbackHours int) error {
	if len(s.Values) == 0 {
		return &InvalidSeriesError{Reason: "no parameter columns"}
	}

	n := s.Len()
	if n == 0 {
		return &InvalidSeriesError{Reason: "empty parameter columns"}
	}
	for param, col := range s.Values {
		if len(col) != n {
			return &InvalidSeriesError{
				Reason: fmt.Sprintf("column %q has %d samples, want %d", param, len(col), n),
			}
		}
	}

	span := s.ForecastStart.Sub(s.Start)
	if span <= 0 || span%time.Hour != 0 {
		return &InvalidSeriesError{Reason: "forecast start not hour-aligned after series start"}
	}

	history := s.HistoryHours()
	if history > n {
		return &InvalidSeriesError{Reason: "forecast start beyond end of series"}
	}
	if history < minLookbackHours {
		return &InvalidSeriesError{
			Reason: fmt.Sprintf("lookback %dh shorter than required %dh", history, minLookbackHours),
		}
	}
	return nil
}

// ValidateHourlyTimes rejects timestamp sequences that are not strictly
// increasing with a fixed one-hour step. Suppliers call this before building
// a Series; gaps must be filled upstream or the series is refused.
func ValidateHourlyTimes(times []time.Time) error {
	if len(times) == 0 {
		return &InvalidSeriesError{Reason: "no timestamps"}
	}
	for i := 1; i < len(times); i++ {
		if times[i].Sub(times[i-1]) != time.Hour {
			return &InvalidSeriesError{
				Reason: fmt.Sprintf("non-uniform cadence at %s -> %s", times[i-1].Format(time.RFC3339), times[i].Format(time.RFC3339)),
			}
		}
	}
	return nil
}

// WeatherSummary aggregates recent conditions for user-facing responses.
// Nil fields mean the parameter was absent or entirely missing.
type WeatherSummary struct {
	TemperatureMean    *float64 `json:"temperature_mean,omitempty"`
	TemperatureMin     *float64 `json:"temperature_min,omitempty"`
	TemperatureMax     *float64 `json:"temperature_max,omitempty"`
	HumidityMean       *float64 `json:"humidity_mean,omitempty"`
	PrecipitationTotal *float64 `json:"precipitation_total,omitempty"`
	WindSpeedMean      *float64 `json:"wind_speed_mean,omitempty"`
	WindSpeedMax       *float64 `json:"wind_speed_max,omitempty"`
}

// Summary computes basic statistics over the trailing hours of the series.
func (s *Series) Summary(hours int) WeatherSummary {
	n := s.Len()
	lo := n - hours
	if lo < 0 {
		lo = 0
	}

	mean, minV, maxV := columnStats(s.Values[ParamTemperature], lo)
	humMean, _, _ := columnStats(s.Values[ParamHumidity], lo)
	_, _, windMax := columnStats(s.Values[ParamWindSpeed], lo)
	windMean, _, _ := columnStats(s.Values[ParamWindSpeed], lo)
	precipTotal := columnSum(s.Values[ParamPrecipitation], lo)

	return WeatherSummary{
		TemperatureMean:    mean,
		TemperatureMin:     minV,
		TemperatureMax:     maxV,
		HumidityMean:       humMean,
		PrecipitationTotal: precipTotal,
		WindSpeedMean:      windMean,
		WindSpeedMax:       windMax,
	}
}

func columnStats(col []float64, lo int) (mean, minV, maxV *float64) {
	var sum float64
	var count int
	lowest := math.Inf(1)
	highest := math.Inf(-1)
	for i := lo; i < len(col); i++ {
		v := col[i]
		if IsMissing(v) {
			continue
		}
		sum += v
		count++
		if v < lowest {
			lowest = v
		}
		if v > highest {
			highest = v
		}
	}
	if count == 0 {
		return nil, nil, nil
	}
	return round1(sum / float64(count)), round1(lowest), round1(highest)
}

func columnSum(col []float64, lo int) *float64 {
	var sum float64
	var count int
	for i := lo; i < len(col); i++ {
		if IsMissing(col[i]) {
			continue
		}
		sum += col[i]
		count++
	}
	if count == 0 {
		return nil
	}
	return round1(sum)
}

func round1(v float64) *float64 {
	r := math.Round(v*10) / 10
	return &r
}
