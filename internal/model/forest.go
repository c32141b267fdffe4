// Package model implements inference for persisted tree-ensemble
// classifiers. Trees are stored as flat node arrays; the two supported
// combination modes cover the forest-style member (averaged leaf
// probabilities) and the boosted-style member (summed leaf margins through a
// sigmoid).
package model

import (
	"fmt"
	"math"
)

// Combination modes.
const (
	ModeAverage = "average" // leaves are probabilities; ensemble output is their mean
	ModeLogit   = "logit"   // leaves are margins; ensemble output is sigmoid(base + sum)
)

// Node is one decision or leaf node in a flat tree array. Internal nodes
// route on features[Feature] < Threshold; leaf nodes carry Value.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
}

// Tree is a single decision tree rooted at node 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Ensemble is a loaded tree-ensemble classifier. Immutable after
// construction and safe for concurrent use; it implements the domain
// Classifier capability.
type Ensemble struct {
	mode         string
	trees        []Tree
	baseScore    float64
	featureCount int
	importances  map[string]float64
}

// NewEnsemble validates persisted ensemble structure: a known mode, at least
// one tree, and node links that stay in bounds so evaluation cannot walk off
// the array.
func NewEnsemble(mode string, trees []Tree, baseScore float64, featureCount int, importances map[string]float64) (*Ensemble, error) {
	if mode != ModeAverage && mode != ModeLogit {
		return nil, fmt.Errorf("unknown combination mode %q", mode)
	}
	if len(trees) == 0 {
		return nil, fmt.Errorf("ensemble has no trees")
	}
	if featureCount <= 0 {
		return nil, fmt.Errorf("feature count %d must be positive", featureCount)
	}

	for ti, tree := range trees {
		if len(tree.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, node := range tree.Nodes {
			if node.Leaf {
				continue
			}
			if node.Feature < 0 || node.Feature >= featureCount {
				return nil, fmt.Errorf("tree %d node %d routes on feature %d, schema has %d", ti, ni, node.Feature, featureCount)
			}
			if node.Left <= ni || node.Left >= len(tree.Nodes) || node.Right <= ni || node.Right >= len(tree.Nodes) {
				return nil, fmt.Errorf("tree %d node %d has out-of-order child links", ti, ni)
			}
		}
	}

	return &Ensemble{
		mode:         mode,
		trees:        trees,
		baseScore:    baseScore,
		featureCount: featureCount,
		importances:  importances,
	}, nil
}

// FeatureCount returns the schema width the ensemble was trained on.
func (e *Ensemble) FeatureCount() int { return e.featureCount }

// PredictProba evaluates every tree on a normalized feature vector and
// combines the leaves per the ensemble mode. Output is clamped to [0,1].
func (e *Ensemble) PredictProba(features []float64) (float64, error) {
	if len(features) != e.featureCount {
		return 0, fmt.Errorf("feature vector has %d values, model expects %d", len(features), e.featureCount)
	}

	var sum float64
	for i := range e.trees {
		sum += evalTree(e.trees[i].Nodes, features)
	}

	switch e.mode {
	case ModeAverage:
		return clamp01(sum / float64(len(e.trees))), nil
	default: // ModeLogit
		return sigmoid(e.baseScore + sum), nil
	}
}

// FeatureImportances returns the trained importance weights persisted with
// the model. Callers must treat the map as read-only.
func (e *Ensemble) FeatureImportances() map[string]float64 {
	return e.importances
}

// evalTree walks from the root to a leaf. Child links are validated strictly
// increasing at load time, so the walk always terminates.
func evalTree(nodes []Node, features []float64) float64 {
	idx := 0
	for !nodes[idx].Leaf {
		n := nodes[idx]
		if features[n.Feature] < n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
	return nodes[idx].Value
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
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
