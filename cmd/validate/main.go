// Command validate performs integrity checks on a model artifact directory:
// normalizer schema alignment with the feature engine, ensemble configuration
// sanity, classifier artifact structure, and an end-to-end smoke score on a
// synthetic weather series. Run it before deploying new artifacts.
//
// Usage:
//
//	go run ./cmd/validate -model-dir models
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/verdantlabs/outbreak-predictor/internal/adapter/modelstore"
	"github.com/verdantlabs/outbreak-predictor/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	modelDir := flag.String("model-dir", "models", "model artifact directory to validate")
	flag.Parse()

	if code := run(*modelDir); code != 0 {
		os.Exit(code)
	}
}

func run(modelDir string) int {
	fmt.Println("=== Model Artifact Validation ===")
	fmt.Println()

	engine := domain.NewEngine(domain.DefaultFeatureConfig())

	phases := []*phase{
		validateNormalizerSchema(modelDir, engine),
		validateEnsembleConfig(modelDir),
		validateClassifierArtifacts(modelDir, engine),
		validateSmokeScore(modelDir, engine),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-44s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Normalizer Schema ──
// The fitted schema must name exactly the features the engine generates, in
// the engine's canonical order.

func validateNormalizerSchema(dir string, engine *domain.Engine) *phase {
	p := &phase{name: "Phase 1: Normalizer Schema (feature names)"}

	data, err := os.ReadFile(filepath.Join(dir, modelstore.NormalizerFile))
	if err != nil {
		p.errorf("read schema: %v", err)
		return p
	}
	var scales []domain.FeatureScale
	if err := json.Unmarshal(data, &scales); err != nil {
		p.errorf("parse schema: %v", err)
		return p
	}

	expected := engine.FeatureNames()
	if len(scales) != len(expected) {
		p.errorf("schema has %d features, engine generates %d", len(scales), len(expected))
	}
	for i, name := range expected {
		if i >= len(scales) {
			break
		}
		if scales[i].Name != name {
			p.errorf("position %d: schema has %q, engine generates %q", i, scales[i].Name, name)
		}
		if scales[i].Scale <= 0 {
			p.errorf("feature %q has non-positive scale %g", scales[i].Name, scales[i].Scale)
		}
	}
	return p
}

// ── Phase 2: Ensemble Configuration ──

type ensembleConfig struct {
	Models []struct {
		Name   string  `json:"name"`
		Weight float64 `json:"weight"`
		File   string  `json:"file"`
	} `json:"models"`
	Thresholds struct {
		Medium float64 `json:"medium"`
		High   float64 `json:"high"`
	} `json:"thresholds"`
}

func validateEnsembleConfig(dir string) *phase {
	p := &phase{name: "Phase 2: Ensemble Configuration (fusion)"}

	data, err := os.ReadFile(filepath.Join(dir, modelstore.EnsembleFile))
	if err != nil {
		p.errorf("read config: %v", err)
		return p
	}
	var cfg ensembleConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		p.errorf("parse config: %v", err)
		return p
	}

	if len(cfg.Models) == 0 {
		p.errorf("no models configured")
		return p
	}

	var weightSum float64
	for _, m := range cfg.Models {
		if m.Name == "" {
			p.errorf("model with file %q has no name", m.File)
		}
		if m.File == "" {
			p.errorf("model %q has no artifact file", m.Name)
		}
		if m.Weight <= 0 {
			p.errorf("model %q has non-positive weight %g", m.Name, m.Weight)
		}
		weightSum += m.Weight
	}
	if math.Abs(weightSum-1) > 1e-6 {
		p.errorf("weights sum to %g, want 1", weightSum)
	}

	t := cfg.Thresholds
	if !(0 < t.Medium && t.Medium < t.High && t.High < 1) {
		p.errorf("thresholds medium=%g high=%g not strictly ordered within (0,1)", t.Medium, t.High)
	}
	return p
}

// ── Phase 3: Classifier Artifacts ──
// Loads the full model set through the production loader and checks the
// importance names resolve against the engineered feature set.

func validateClassifierArtifacts(dir string, engine *domain.Engine) *phase {
	p := &phase{name: "Phase 3: Classifier Artifacts (loadable)"}

	set, err := modelstore.Load(dir, discardLogger())
	if err != nil {
		p.errorf("load model set: %v", err)
		return p
	}

	known := make(map[string]bool, len(engine.FeatureNames()))
	for _, n := range engine.FeatureNames() {
		known[n] = true
	}

	loaded := 0
	for _, member := range set.Scorer.Models() {
		if member.Model == nil {
			p.errorf("model %q: artifact missing (ensemble would run degraded)", member.Name)
			continue
		}
		loaded++
		for name := range member.Model.FeatureImportances() {
			if !known[name] {
				p.errorf("model %q: importance names unknown feature %q", member.Name, name)
			}
		}
	}
	if loaded == 0 {
		p.errorf("no classifier artifacts loadable")
	}
	return p
}

// ── Phase 4: Smoke Score ──
// Runs the full feature -> normalize -> score path on a synthetic humid-warm
// series for every lead day and checks the outputs are well formed.

func validateSmokeScore(dir string, engine *domain.Engine) *phase {
	p := &phase{name: "Phase 4: Smoke Score (end to end)"}

	set, err := modelstore.Load(dir, discardLogger())
	if err != nil {
		p.errorf("load model set: %v", err)
		return p
	}

	series := syntheticSeries(30, engine.Config().MaxLeadDays)

	for day := 1; day <= engine.Config().MaxLeadDays; day++ {
		vec, err := engine.Vector(series, day, "late_blight")
		if err != nil {
			p.errorf("day %d: feature engineering: %v", day, err)
			continue
		}
		normalized, err := set.Normalizer.Apply(vec)
		if err != nil {
			p.errorf("day %d: normalize: %v", day, err)
			continue
		}
		prob, degraded, err := set.Scorer.Score(normalized)
		if err != nil {
			p.errorf("day %d: score: %v", day, err)
			continue
		}
		if prob < 0 || prob > 1 {
			p.errorf("day %d: probability %g outside [0,1]", day, prob)
		}
		if degraded {
			p.errorf("day %d: scored in degraded mode", day)
		}
	}
	return p
}

// syntheticSeries builds a constant warm-humid series: pastDays of history
// plus forecastDays of horizon, no missing samples.
func syntheticSeries(pastDays, forecastDays int) *domain.Series {
	n := (pastDays + forecastDays) * domain.HoursPerDay

	constant := func(v float64) []float64 {
		col := make([]float64, n)
		for i := range col {
			col[i] = v
		}
		return col
	}

	values := map[string][]float64{
		domain.ParamTemperature:    constant(22),
		domain.ParamHumidity:       constant(88),
		domain.ParamDewPoint:       constant(19),
		domain.ParamPrecipitation:  constant(0.4),
		domain.ParamWindSpeed:      constant(8),
		domain.ParamPressure:       constant(1012),
		domain.ParamCloudCover:     constant(70),
		domain.ParamRadiation:      constant(120),
		domain.ParamSoilTemp:       constant(18),
		domain.ParamSoilMoisture:   constant(0.3),
		domain.ParamVPD:            constant(0.35),
		domain.ParamEvapotranspire: constant(0.1),
	}

	start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Series{
		Latitude:      52.52,
		Longitude:     13.41,
		Start:         start,
		ForecastStart: start.Add(time.Duration(pastDays) * domain.HoursPerDay * time.Hour),
		Values:        values,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
