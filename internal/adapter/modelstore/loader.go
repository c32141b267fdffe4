// Package modelstore loads the persisted scoring artifacts: the fitted
// normalizer schema, the tree-ensemble classifiers, and the ensemble fusion
// configuration. Artifact layout in the model directory:
//
//	normalizer.json  ordered [{name, mean, scale}, ...]
//	ensemble.json    {models: [{name, weight, file}, ...], thresholds: {medium, high}}
//	model_a.json     {mode, base_score, feature_count, trees, importances}
//	model_b.json     (same shape)
//
// A missing classifier file degrades the ensemble (the slot stays with a nil
// model); a missing or invalid ensemble.json or normalizer.json is fatal.
package modelstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/verdantlabs/outbreak-predictor/internal/domain"
	"github.com/verdantlabs/outbreak-predictor/internal/model"
)

// Artifact file names within the model directory.
const (
	NormalizerFile = "normalizer.json"
	EnsembleFile   = "ensemble.json"
)

// importanceTolerance bounds how far a model's persisted importance weights
// may drift from summing to 1.
const importanceTolerance = 1e-6

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

type modelArtifact struct {
	Mode         string             `json:"mode"`
	BaseScore    float64            `json:"base_score"`
	FeatureCount int                `json:"feature_count"`
	Trees        []model.Tree       `json:"trees"`
	Importances  map[string]float64 `json:"importances"`
}

// Load reads every artifact from dir and assembles an immutable ModelSet.
// Classifier files that are absent or unreadable are logged and left as
// unloaded slots so the scorer can degrade; configuration-level problems are
// returned as errors.
func Load(dir string, logger *slog.Logger) (*domain.ModelSet, error) {
	normalizer, err := loadNormalizer(filepath.Join(dir, NormalizerFile))
	if err != nil {
		return nil, err
	}

	cfg, err := loadEnsembleConfig(filepath.Join(dir, EnsembleFile))
	if err != nil {
		return nil, err
	}

	members := make([]domain.WeightedClassifier, len(cfg.Models))
	for i, mc := range cfg.Models {
		members[i] = domain.WeightedClassifier{Name: mc.Name, Weight: mc.Weight}

		clf, err := loadClassifier(filepath.Join(dir, mc.File), normalizer.Len())
		if err != nil {
			if os.IsNotExist(err) {
				logger.Warn("classifier artifact missing, ensemble will degrade", "model", mc.Name, "file", mc.File)
				continue
			}
			return nil, fmt.Errorf("load classifier %s: %w", mc.Name, err)
		}
		members[i].Model = clf
	}

	scorer, err := domain.NewScorer(members, domain.RiskThresholds{
		Medium: cfg.Thresholds.Medium,
		High:   cfg.Thresholds.High,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("model set loaded",
		"features", normalizer.Len(),
		"models_configured", len(members),
		"models_loaded", scorer.LoadedCount(),
	)

	return &domain.ModelSet{Normalizer: normalizer, Scorer: scorer}, nil
}

func loadNormalizer(path string) (*domain.Normalizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read normalizer schema: %w", err)
	}

	var scales []domain.FeatureScale
	if err := json.Unmarshal(data, &scales); err != nil {
		return nil, fmt.Errorf("parse normalizer schema: %w", err)
	}

	return domain.NewNormalizer(scales)
}

func loadEnsembleConfig(path string) (*ensembleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.EnsembleConfigError{Reason: fmt.Sprintf("read %s: %v", filepath.Base(path), err)}
	}

	var cfg ensembleConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &domain.EnsembleConfigError{Reason: fmt.Sprintf("parse %s: %v", filepath.Base(path), err)}
	}
	if len(cfg.Models) == 0 {
		return nil, &domain.EnsembleConfigError{Reason: "no models configured"}
	}
	for _, mc := range cfg.Models {
		if mc.File == "" {
			return nil, &domain.EnsembleConfigError{Reason: fmt.Sprintf("model %q has no artifact file", mc.Name)}
		}
	}
	return &cfg, nil
}

func loadClassifier(path string, featureCount int) (domain.Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var art modelArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}

	if art.FeatureCount != featureCount {
		return nil, fmt.Errorf("model trained on %d features, normalizer schema has %d", art.FeatureCount, featureCount)
	}
	if err := validateImportances(art.Importances); err != nil {
		return nil, err
	}

	return model.NewEnsemble(art.Mode, art.Trees, art.BaseScore, art.FeatureCount, art.Importances)
}

func validateImportances(importances map[string]float64) error {
	if len(importances) == 0 {
		return fmt.Errorf("model artifact has no feature importances")
	}
	var sum float64
	for name, w := range importances {
		if w < 0 {
			return fmt.Errorf("importance for %q is negative", name)
		}
		sum += w
	}
	if math.Abs(sum-1) > importanceTolerance {
		return fmt.Errorf("importances sum to %g, want 1", sum)
	}
	return nil
}
