// Command genmodels generates a demo model directory: a normalizer schema
// covering the full engineered feature set, two small tree-ensemble
// classifiers, and the ensemble fusion config. It uses the actual feature
// engine so the artifact schema always matches serving behavior.
//
// The generated models are for local development and integration testing
// only; production artifacts come from the training pipeline.
//
// Usage:
//
//	go run ./cmd/genmodels -out models
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/verdantlabs/outbreak-predictor/internal/domain"
	"github.com/verdantlabs/outbreak-predictor/internal/model"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// ensembleConfig mirrors the ensemble.json artifact shape.
type ensembleConfig struct {
	Models     []memberConfig `json:"models"`
	Thresholds thresholds     `json:"thresholds"`
}

type memberConfig struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	File   string  `json:"file"`
}

type thresholds struct {
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// modelArtifact mirrors the per-classifier artifact shape.
type modelArtifact struct {
	Mode         string             `json:"mode"`
	BaseScore    float64            `json:"base_score"`
	FeatureCount int                `json:"feature_count"`
	Trees        []model.Tree       `json:"trees"`
	Importances  map[string]float64 `json:"importances"`
}

func run() error {
	outDir := flag.String("out", "models", "output directory for model artifacts")
	flag.Parse()

	engine := domain.NewEngine(domain.DefaultFeatureConfig())
	names := engine.FeatureNames()

	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}

	// Features the demo trees route on. All exist in the engineered set; a
	// typo here fails fast at lookup rather than producing a broken artifact.
	humMean24 := mustIndex(index, "relative_humidity_2m_rolling_24h_mean")
	tempMean24 := mustIndex(index, "temperature_2m_rolling_24h_mean")
	wetness := mustIndex(index, "leaf_wetness_duration_24h")
	favorability := mustIndex(index, "disease_favorability")
	precipSum48 := mustIndex(index, "precipitation_rolling_48h_sum")

	// Normalizer: identity scaling. Demo trees are hand-built on raw feature
	// ranges, so mean 0 / scale 1 keeps the routed values interpretable.
	scales := make([]domain.FeatureScale, len(names))
	for i, n := range names {
		scales[i] = domain.FeatureScale{Name: n, Mean: 0, Scale: 1}
	}
	if err := writeJSON(filepath.Join(*outDir, "normalizer.json"), scales); err != nil {
		return fmt.Errorf("write normalizer: %w", err)
	}

	// Forest-style member: leaves are probabilities, averaged.
	modelA := modelArtifact{
		Mode:         model.ModeAverage,
		FeatureCount: len(names),
		Trees: []model.Tree{
			stump(humMean24, 80, 0.2, 0.7),
			stump(wetness, 8, 0.3, 0.8),
			stump(favorability, 0.6, 0.25, 0.75),
		},
		Importances: map[string]float64{
			"relative_humidity_2m_rolling_24h_mean": 0.30,
			"leaf_wetness_duration_24h":             0.25,
			"disease_favorability":                  0.20,
			"temperature_2m_rolling_24h_mean":       0.15,
			"precipitation_rolling_48h_sum":         0.10,
		},
	}
	if err := writeJSON(filepath.Join(*outDir, "model_a.json"), modelA); err != nil {
		return fmt.Errorf("write model_a: %w", err)
	}

	// Boosted-style member: leaves are margins summed through a sigmoid.
	modelB := modelArtifact{
		Mode:         model.ModeLogit,
		BaseScore:    -0.5,
		FeatureCount: len(names),
		Trees: []model.Tree{
			stump(favorability, 0.5, -0.8, 0.9),
			stump(tempMean24, 15, -0.3, 0.4),
			stump(precipSum48, 10, -0.2, 0.5),
		},
		Importances: map[string]float64{
			"disease_favorability":                  0.35,
			"temperature_2m_rolling_24h_mean":       0.25,
			"precipitation_rolling_48h_sum":         0.20,
			"relative_humidity_2m_rolling_24h_mean": 0.12,
			"leaf_wetness_duration_24h":             0.08,
		},
	}
	if err := writeJSON(filepath.Join(*outDir, "model_b.json"), modelB); err != nil {
		return fmt.Errorf("write model_b: %w", err)
	}

	cfg := ensembleConfig{
		Models: []memberConfig{
			{Name: "forest", Weight: 0.6, File: "model_a.json"},
			{Name: "boosted", Weight: 0.4, File: "model_b.json"},
		},
		Thresholds: thresholds{Medium: 0.33, High: 0.66},
	}
	if err := writeJSON(filepath.Join(*outDir, "ensemble.json"), cfg); err != nil {
		return fmt.Errorf("write ensemble config: %w", err)
	}

	log.Printf("wrote %d-feature normalizer and 2 classifiers to %s", len(names), *outDir)
	return nil
}

// stump builds a single-split tree: features[feature] < threshold routes to
// the low leaf, otherwise the high leaf.
func stump(feature int, threshold, low, high float64) model.Tree {
	return model.Tree{Nodes: []model.Node{
		{Feature: feature, Threshold: threshold, Left: 1, Right: 2},
		{Leaf: true, Value: low},
		{Leaf: true, Value: high},
	}}
}

func mustIndex(index map[string]int, name string) int {
	i, ok := index[name]
	if !ok {
		log.Fatalf("feature %q not in engineered set", name)
	}
	return i
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
