package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stump is a single-split tree: feature < threshold routes to low, else high.
func stump(feature int, threshold, low, high float64) Tree {
	return Tree{Nodes: []Node{
		{Feature: feature, Threshold: threshold, Left: 1, Right: 2},
		{Leaf: true, Value: low},
		{Leaf: true, Value: high},
	}}
}

func TestNewEnsemble(t *testing.T) {
	valid := []Tree{stump(0, 0.5, 0.2, 0.8)}

	t.Run("valid", func(t *testing.T) {
		e, err := NewEnsemble(ModeAverage, valid, 0, 2, nil)
		require.NoError(t, err)
		assert.Equal(t, 2, e.FeatureCount())
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := NewEnsemble("vote", valid, 0, 2, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mode")
	})

	t.Run("no trees", func(t *testing.T) {
		_, err := NewEnsemble(ModeAverage, nil, 0, 2, nil)
		require.Error(t, err)
	})

	t.Run("empty tree", func(t *testing.T) {
		_, err := NewEnsemble(ModeAverage, []Tree{{}}, 0, 2, nil)
		require.Error(t, err)
	})

	t.Run("feature out of schema", func(t *testing.T) {
		_, err := NewEnsemble(ModeAverage, []Tree{stump(5, 0.5, 0, 1)}, 0, 2, nil)
		require.Error(t, err)
	})

	t.Run("child link out of bounds", func(t *testing.T) {
		bad := Tree{Nodes: []Node{
			{Feature: 0, Threshold: 0.5, Left: 1, Right: 9},
			{Leaf: true, Value: 0.5},
		}}
		_, err := NewEnsemble(ModeAverage, []Tree{bad}, 0, 2, nil)
		require.Error(t, err)
	})

	t.Run("backward child link", func(t *testing.T) {
		bad := Tree{Nodes: []Node{
			{Leaf: true, Value: 0.5},
			{Feature: 0, Threshold: 0.5, Left: 0, Right: 0},
		}}
		_, err := NewEnsemble(ModeAverage, []Tree{bad}, 0, 2, nil)
		require.Error(t, err)
	})
}

func TestPredictProbaAverage(t *testing.T) {
	e, err := NewEnsemble(ModeAverage, []Tree{
		stump(0, 0.5, 0.2, 0.8),
		stump(1, 0.5, 0.4, 0.6),
	}, 0, 2, nil)
	require.NoError(t, err)

	t.Run("routes both low", func(t *testing.T) {
		p, err := e.PredictProba([]float64{0, 0})
		require.NoError(t, err)
		assert.InDelta(t, 0.3, p, 1e-12) // (0.2+0.4)/2
	})

	t.Run("routes both high", func(t *testing.T) {
		p, err := e.PredictProba([]float64{1, 1})
		require.NoError(t, err)
		assert.InDelta(t, 0.7, p, 1e-12)
	})

	t.Run("threshold boundary routes right", func(t *testing.T) {
		p, err := e.PredictProba([]float64{0.5, 0})
		require.NoError(t, err)
		assert.InDelta(t, 0.6, p, 1e-12) // (0.8+0.4)/2
	})

	t.Run("wrong width", func(t *testing.T) {
		_, err := e.PredictProba([]float64{0})
		require.Error(t, err)
	})
}

func TestPredictProbaLogit(t *testing.T) {
	e, err := NewEnsemble(ModeLogit, []Tree{
		stump(0, 0.5, -1, 1),
		stump(1, 0.5, -0.5, 0.5),
	}, 0.25, 2, nil)
	require.NoError(t, err)

	t.Run("sigmoid of base plus margins", func(t *testing.T) {
		p, err := e.PredictProba([]float64{1, 1})
		require.NoError(t, err)
		want := 1 / (1 + math.Exp(-(0.25 + 1 + 0.5)))
		assert.InDelta(t, want, p, 1e-12)
	})

	t.Run("output within unit interval", func(t *testing.T) {
		lo, err := e.PredictProba([]float64{0, 0})
		require.NoError(t, err)
		assert.Greater(t, lo, 0.0)
		assert.Less(t, lo, 0.5)
	})
}

func TestPredictProbaAverageClamped(t *testing.T) {
	// A mis-calibrated artifact with leaf values outside [0,1] must still
	// produce a probability.
	e, err := NewEnsemble(ModeAverage, []Tree{stump(0, 0.5, -0.2, 1.3)}, 0, 1, nil)
	require.NoError(t, err)

	lo, err := e.PredictProba([]float64{0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, lo)

	hi, err := e.PredictProba([]float64{1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, hi)
}

func TestPredictProbaDeepTree(t *testing.T) {
	deep := Tree{Nodes: []Node{
		{Feature: 0, Threshold: 0, Left: 1, Right: 2},
		{Leaf: true, Value: 0.1},
		{Feature: 1, Threshold: 0, Left: 3, Right: 4},
		{Leaf: true, Value: 0.5},
		{Leaf: true, Value: 0.9},
	}}
	e, err := NewEnsemble(ModeAverage, []Tree{deep}, 0, 2, nil)
	require.NoError(t, err)

	tests := []struct {
		features []float64
		want     float64
	}{
		{[]float64{-1, 0}, 0.1},
		{[]float64{1, -1}, 0.5},
		{[]float64{1, 1}, 0.9},
	}
	for _, tc := range tests {
		p, err := e.PredictProba(tc.features)
		require.NoError(t, err)
		assert.Equal(t, tc.want, p, "features=%v", tc.features)
	}
}

func TestFeatureImportances(t *testing.T) {
	imp := map[string]float64{"humidity": 0.7, "temp": 0.3}
	e, err := NewEnsemble(ModeAverage, []Tree{stump(0, 0.5, 0, 1)}, 0, 1, imp)
	require.NoError(t, err)
	assert.Equal(t, imp, e.FeatureImportances())
}
