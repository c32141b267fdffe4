package domain

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureNames(t *testing.T) {
	engine := NewEngine(DefaultFeatureConfig())
	names := engine.FeatureNames()

	// 12 params * (6 windows * 5 aggs + 7 lags + 5 deltas) + 6 interactions + 4 indices.
	assert.Len(t, names, 12*42+6+4)

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		assert.False(t, seen[n], "duplicate feature name %q", n)
		seen[n] = true
	}

	assert.Contains(t, names, "temperature_2m_rolling_24h_mean")
	assert.Contains(t, names, "relative_humidity_2m_lag_72h")
	assert.Contains(t, names, "precipitation_delta_6h")
	assert.Contains(t, names, "temperature_2m_relative_humidity_2m_interaction")
	assert.Contains(t, names, "leaf_wetness_duration_24h")
	assert.Contains(t, names, "disease_favorability")
}

// Parameters whose names share a prefix (soil_temperature_0cm vs
// soil_moisture_0_1cm) must not collide when names are generated.
func TestFeatureNamesPrefixSafety(t *testing.T) {
	engine := NewEngine(DefaultFeatureConfig())

	var soilTemp, soilMoist int
	for _, n := range engine.FeatureNames() {
		if strings.HasPrefix(n, ParamSoilTemp+"_") {
			soilTemp++
		}
		if strings.HasPrefix(n, ParamSoilMoisture+"_") {
			soilMoist++
		}
	}
	assert.Equal(t, 42, soilTemp)
	// soil_moisture appears in 42 derivations plus the soil interaction pair.
	assert.Equal(t, 43, soilMoist)
}

func TestVectorKeySetMatchesSchema(t *testing.T) {
	engine := NewEngine(DefaultFeatureConfig())
	s := constantSeries(30, 7, nil)

	vec, err := engine.Vector(s, 1, "late_blight")
	require.NoError(t, err)

	names := engine.FeatureNames()
	require.Len(t, vec, len(names))
	for _, n := range names {
		_, ok := vec[n]
		assert.True(t, ok, "feature %q absent from vector", n)
	}
}

func TestVectorDeterministic(t *testing.T) {
	engine := NewEngine(DefaultFeatureConfig())
	s := constantSeries(30, 7, nil)

	a, err := engine.Vector(s, 3, "late_blight")
	require.NoError(t, err)
	b, err := engine.Vector(s, 3, "late_blight")
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(a, b))
}

func TestVectorConstantSeries(t *testing.T) {
	engine := NewEngine(DefaultFeatureConfig())
	s := constantSeries(30, 7, map[string]float64{
		ParamTemperature: 25,
		ParamHumidity:    90,
	})

	vec, err := engine.Vector(s, 2, "late_blight")
	require.NoError(t, err)

	assert.Equal(t, 25.0, vec["temperature_2m_rolling_24h_mean"])
	assert.Equal(t, 25.0, vec["temperature_2m_rolling_72h_min"])
	assert.Equal(t, 25.0, vec["temperature_2m_rolling_6h_max"])
	assert.Equal(t, 25.0*48, vec["temperature_2m_rolling_48h_sum"])
	assert.Equal(t, 0.0, vec["temperature_2m_rolling_24h_std"])

	assert.Equal(t, 25.0, vec["temperature_2m_lag_24h"])
	assert.Equal(t, 0.0, vec["temperature_2m_delta_12h"])

	assert.Equal(t, 25.0*90, vec["temperature_2m_relative_humidity_2m_interaction"])
}

// Scoring day d must only read series values up to the last hour of day d.
func TestVectorLeakageSafe(t *testing.T) {
	engine := NewEngine(DefaultFeatureConfig())

	s := constantSeries(30, 7, nil)
	ref := s.HistoryHours() + 2*HoursPerDay - 1

	// Corrupt everything after the day-2 reference hour.
	for _, col := range s.Values {
		for i := ref + 1; i < len(col); i++ {
			col[i] = 9999
		}
	}

	clean := constantSeries(30, 7, nil)
	want, err := engine.Vector(clean, 2, "late_blight")
	require.NoError(t, err)
	got, err := engine.Vector(s, 2, "late_blight")
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(want, got))
}

func TestVectorDayBounds(t *testing.T) {
	engine := NewEngine(DefaultFeatureConfig())
	s := constantSeries(30, 7, nil)

	for _, day := range []int{0, -1, 8} {
		_, err := engine.Vector(s, day, "")
		var invalid *InvalidSeriesError
		require.ErrorAs(t, err, &invalid, "day %d", day)
	}
}

func TestVectorHorizonTooShort(t *testing.T) {
	engine := NewEngine(DefaultFeatureConfig())
	s := constantSeries(30, 3, nil)

	_, err := engine.Vector(s, 5, "")
	var invalid *InvalidSeriesError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, err.Error(), "horizon")
}

func TestRollingAgg(t *testing.T) {
	col := []float64{1, 2, 3, 4, 5, 6}

	t.Run("aggregations", func(t *testing.T) {
		assert.Equal(t, 4.0, rollingAgg(col, 4, 3, AggMean)) // {3,4,5}
		assert.Equal(t, 3.0, rollingAgg(col, 4, 3, AggMin))
		assert.Equal(t, 5.0, rollingAgg(col, 4, 3, AggMax))
		assert.Equal(t, 12.0, rollingAgg(col, 4, 3, AggSum))
		assert.InDelta(t, 1.0, rollingAgg(col, 4, 3, AggStd), 1e-12)
	})

	t.Run("sample std", func(t *testing.T) {
		// {2, 4, 6, 8}: mean 5, sample variance 20/3.
		v := rollingAgg([]float64{2, 4, 6, 8}, 3, 4, AggStd)
		assert.InDelta(t, math.Sqrt(20.0/3.0), v, 1e-12)
	})

	t.Run("window truncated at series start keeps majority", func(t *testing.T) {
		// Window of 4 ending at index 2: only 3 samples exist, 3 >= 4/2.
		assert.Equal(t, 2.0, rollingAgg(col, 2, 4, AggMean))
	})

	t.Run("below half coverage is missing", func(t *testing.T) {
		// Window of 6 ending at index 1: 2 of 6 samples present.
		assert.True(t, IsMissing(rollingAgg(col, 1, 6, AggMean)))
	})

	t.Run("observed missing counts against coverage", func(t *testing.T) {
		sparse := []float64{1, Missing(), Missing(), Missing(), 5, 6}
		// Window {idx 1..4}: one present of four.
		assert.True(t, IsMissing(rollingAgg(sparse, 4, 4, AggMean)))
		// Window {idx 3..5}: two present of three.
		assert.Equal(t, 5.5, rollingAgg(sparse, 5, 3, AggMean))
	})

	t.Run("std needs two samples", func(t *testing.T) {
		single := []float64{7, Missing()}
		assert.True(t, IsMissing(rollingAgg(single, 1, 2, AggStd)))
	})

	t.Run("empty column", func(t *testing.T) {
		assert.True(t, IsMissing(rollingAgg(nil, 0, 3, AggMean)))
	})
}

func TestLagAndDelta(t *testing.T) {
	col := []float64{10, 20, Missing(), 40}

	assert.Equal(t, 10.0, valueAt(col, 0))
	assert.True(t, IsMissing(valueAt(col, -1)))
	assert.True(t, IsMissing(valueAt(col, 4)))
	assert.True(t, IsMissing(valueAt(col, 2)))

	assert.Equal(t, 30.0, delta(col, 3, 3)) // 40 - 10
	assert.True(t, IsMissing(delta(col, 3, 1)), "missing endpoint")
	assert.True(t, IsMissing(delta(col, 2, 1)), "missing reference")
	assert.True(t, IsMissing(delta(col, 1, 2)), "period before series start")
}

// An interaction is missing if either side's rolling mean is missing, even
// when the other side is fully observed.
func TestInteractionMissingPropagation(t *testing.T) {
	engine := NewEngine(DefaultFeatureConfig())
	s := constantSeries(30, 7, nil)

	ref := s.HistoryHours() + 1*HoursPerDay - 1
	hum := s.Values[ParamHumidity]
	for i := ref - 23; i <= ref; i++ {
		hum[i] = Missing()
	}

	vec, err := engine.Vector(s, 1, "late_blight")
	require.NoError(t, err)

	assert.True(t, IsMissing(vec["temperature_2m_relative_humidity_2m_interaction"]))
	assert.False(t, IsMissing(vec["precipitation_wind_speed_10m_interaction"]))
}

func TestMinLookbackHours(t *testing.T) {
	assert.Equal(t, 72, DefaultFeatureConfig().MinLookbackHours())
}
