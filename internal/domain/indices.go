package domain

import "math"

// Disease index feature names. Fixed parameters of the engine, not learned.
const (
	IndexLeafWetness        = "leaf_wetness_duration_24h"
	IndexVPD                = "vpd_calculated"
	IndexDewPointDepression = "dew_point_depression"
	IndexFavorability       = "disease_favorability"
)

// DiseaseProfile parameterizes the disease indices: the temperature band a
// pathogen favors and the humidity threshold above which foliage is assumed
// wet. Profiles tune index values only; feature names are identical for every
// disease, keeping the fitted normalizer schema valid.
type DiseaseProfile struct {
	TempLow     float64
	TempHigh    float64
	HumidityMin float64
}

// genericProfile covers unknown diseases: the broad 10-30°C band where most
// foliar pathogens are active.
var genericProfile = DiseaseProfile{TempLow: 10, TempHigh: 30, HumidityMin: 85}

// diseaseProfiles holds the per-pathogen environmental bands. Adding a
// disease means adding an entry here, not branching in the engine.
var diseaseProfiles = map[string]DiseaseProfile{
	"late_blight":        {TempLow: 10, TempHigh: 25, HumidityMin: 85},
	"early_blight":       {TempLow: 15, TempHigh: 20, HumidityMin: 85},
	"powdery_mildew":     {TempLow: 18, TempHigh: 28, HumidityMin: 40},
	"downy_mildew":       {TempLow: 10, TempHigh: 20, HumidityMin: 85},
	"coffee_rust":        {TempLow: 15, TempHigh: 25, HumidityMin: 80},
	"wheat_stem_rust":    {TempLow: 15, TempHigh: 25, HumidityMin: 80},
	"botrytis_gray_mold": {TempLow: 15, TempHigh: 23, HumidityMin: 90},
	"damping_off":        {TempLow: 20, TempHigh: 30, HumidityMin: 85},
	"clubroot":           {TempLow: 5, TempHigh: 20, HumidityMin: 85},
}

// ProfileFor resolves a disease identifier to its profile, falling back to
// the generic band for unknown or empty identifiers.
func ProfileFor(disease string) DiseaseProfile {
	if p, ok := diseaseProfiles[disease]; ok {
		return p
	}
	return genericProfile
}

// diseaseIndices is the registry of named closed-form indices computed once
// per target day. Registry order is part of the feature-name contract.
var diseaseIndices = []struct {
	name string
	fn   func(s *Series, ref int, p DiseaseProfile) float64
}{
	{IndexLeafWetness, leafWetnessDuration},
	{IndexVPD, vaporPressureDeficit},
	{IndexDewPointDepression, dewPointDepression},
	{IndexFavorability, favorabilityScore},
}

// leafWetnessDuration counts hours within the preceding 24h where humidity is
// at or above the profile threshold and temperature sits inside the favorable
// band. Hours lacking either reading do not count; below 50% joint coverage
// the index is missing, matching the rolling-window policy.
func leafWetnessDuration(s *Series, ref int, p DiseaseProfile) float64 {
	temp := s.Values[ParamTemperature]
	hum := s.Values[ParamHumidity]

	lo := ref - HoursPerDay + 1
	if lo < 0 {
		lo = 0
	}

	var covered, wet int
	for i := lo; i <= ref; i++ {
		t := valueAt(temp, i)
		h := valueAt(hum, i)
		if IsMissing(t) || IsMissing(h) {
			continue
		}
		covered++
		if h >= p.HumidityMin && t >= p.TempLow && t <= p.TempHigh {
			wet++
		}
	}
	if 2*covered < HoursPerDay {
		return Missing()
	}
	return float64(wet)
}

// vaporPressureDeficit computes VPD (kPa) at the reference hour from
// temperature and relative humidity via the Magnus formula.
func vaporPressureDeficit(s *Series, ref int, _ DiseaseProfile) float64 {
	t := valueAt(s.Values[ParamTemperature], ref)
	h := valueAt(s.Values[ParamHumidity], ref)
	if IsMissing(t) || IsMissing(h) {
		return Missing()
	}
	svp := 0.6108 * math.Exp((17.27*t)/(t+237.3))
	avp := (h / 100) * svp
	return svp - avp
}

// dewPointDepression is air temperature minus dew point at the reference
// hour; values near zero indicate saturation.
func dewPointDepression(s *Series, ref int, _ DiseaseProfile) float64 {
	t := valueAt(s.Values[ParamTemperature], ref)
	d := valueAt(s.Values[ParamDewPoint], ref)
	if IsMissing(t) || IsMissing(d) {
		return Missing()
	}
	return t - d
}

// favorabilityScore is a weighted blend in [0,1] of normalized humidity,
// proximity to the profile's temperature band midpoint, and precipitation
// presence over the preceding 24h.
func favorabilityScore(s *Series, ref int, p DiseaseProfile) float64 {
	t := valueAt(s.Values[ParamTemperature], ref)
	h := valueAt(s.Values[ParamHumidity], ref)
	if IsMissing(t) || IsMissing(h) {
		return Missing()
	}

	humidity := clamp01(h / 100)

	mid := (p.TempLow + p.TempHigh) / 2
	halfWidth := (p.TempHigh - p.TempLow) / 2
	proximity := 0.0
	if halfWidth > 0 {
		proximity = clamp01(1 - math.Abs(t-mid)/halfWidth)
	}

	precip := 0.0
	col := s.Values[ParamPrecipitation]
	lo := ref - HoursPerDay + 1
	if lo < 0 {
		lo = 0
	}
	for i := lo; i <= ref; i++ {
		if v := valueAt(col, i); !IsMissing(v) && v > 0 {
			precip = 1
			break
		}
	}

	return 0.5*humidity + 0.3*proximity + 0.2*precip
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
