// Package pipeline orchestrates per-day scoring: feature engineering,
// normalization, ensemble fusion, and explainability over an in-memory
// weather series.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/verdantlabs/outbreak-predictor/internal/domain"
	"github.com/verdantlabs/outbreak-predictor/internal/observability"
)

// Predictor runs the scoring pipeline for one location's series. The fitted
// model set lives behind an atomic pointer: requests snapshot it once at
// entry, so a concurrent reload can never expose a half-updated ensemble.
type Predictor struct {
	engine      *domain.Engine
	models      atomic.Pointer[domain.ModelSet]
	logger      *slog.Logger
	metrics     *observability.Metrics
	concurrency int
}

// New creates a Predictor. The model set may be nil at construction; the
// predictor reports not-ready until Swap installs one.
func New(engine *domain.Engine, set *domain.ModelSet, logger *slog.Logger, metrics *observability.Metrics, concurrency int) *Predictor {
	if concurrency < 1 {
		concurrency = 1
	}
	p := &Predictor{
		engine:      engine,
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
	}
	if set != nil {
		p.Swap(set)
	}
	return p
}

// Swap atomically installs a new model set. In-flight requests keep scoring
// against the snapshot they took at entry.
func (p *Predictor) Swap(set *domain.ModelSet) {
	p.models.Store(set)
	if set != nil {
		p.metrics.ModelsLoaded.Set(float64(set.Scorer.LoadedCount()))
		if set.Scorer.LoadedCount() < len(set.Scorer.Models()) {
			p.metrics.DegradedMode.Set(1)
		} else {
			p.metrics.DegradedMode.Set(0)
		}
	}
}

// CheckReadiness returns nil once a model set with at least one loaded
// classifier is installed.
func (p *Predictor) CheckReadiness(_ context.Context) error {
	set := p.models.Load()
	if set == nil {
		return errors.New("model set not loaded")
	}
	if set.Scorer.LoadedCount() == 0 {
		return domain.ErrNoModelAvailable
	}
	return nil
}

// Score produces one RiskEstimate per requested forecast day, ascending by
// day. Per-day pipelines are independent and run concurrently up to the
// configured limit; a day that fails validation carries an error annotation
// in its slot without aborting siblings. Process-fatal conditions (no model
// loaded, schema mismatch against the fitted normalizer) abort the whole
// batch.
func (p *Predictor) Score(ctx context.Context, series *domain.Series, days []int, disease string) ([]domain.RiskEstimate, error) {
	// No cancellation mid-batch: deadline enforcement belongs to the
	// enclosing handler, and per-day work is CPU-bound and short.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := p.models.Load()
	if set == nil || set.Scorer.LoadedCount() == 0 {
		return nil, domain.ErrNoModelAvailable
	}

	sorted, err := normalizeDays(days, p.engine.Config().MaxLeadDays)
	if err != nil {
		return nil, err
	}

	if err := series.Validate(p.engine.MinLookbackHours()); err != nil {
		return nil, err
	}

	estimates := make([]domain.RiskEstimate, len(sorted))
	fatal := make([]error, len(sorted))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency)
	for i, day := range sorted {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			est, err := p.scoreDay(set, series, day, disease)
			if err != nil {
				if isFatal(err) {
					fatal[i] = err
					return
				}
				p.metrics.DayFailures.Inc()
				p.logger.Warn("day scoring failed", "day", day, "disease", disease, "error", err)
				estimates[i] = domain.NewFailedEstimate(day, err)
				return
			}
			estimates[i] = est
		}()
	}
	wg.Wait()

	for _, err := range fatal {
		if err != nil {
			p.metrics.PredictionRequests.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	outcome := "ok"
	for _, est := range estimates {
		if est.Failed() {
			outcome = "partial"
			continue
		}
		p.metrics.DayPredictions.WithLabelValues(est.RiskLevel).Inc()
	}
	p.metrics.PredictionRequests.WithLabelValues(outcome).Inc()

	return estimates, nil
}

// scoreDay runs one day through engine -> normalizer -> scorer -> ranker.
func (p *Predictor) scoreDay(set *domain.ModelSet, series *domain.Series, day int, disease string) (domain.RiskEstimate, error) {
	start := time.Now()
	vec, err := p.engine.Vector(series, day, disease)
	if err != nil {
		return domain.RiskEstimate{}, err
	}
	p.metrics.FeatureDuration.Observe(time.Since(start).Seconds())

	scoreStart := time.Now()
	normalized, err := set.Normalizer.Apply(vec)
	if err != nil {
		return domain.RiskEstimate{}, err
	}

	probability, degraded, err := set.Scorer.Score(normalized)
	if err != nil {
		return domain.RiskEstimate{}, err
	}

	top := domain.TopFeatures(set.Scorer.Models(), domain.TopFeatureCount)
	p.metrics.ScoreDuration.Observe(time.Since(scoreStart).Seconds())

	level := set.Scorer.Thresholds().Level(probability)
	return domain.NewRiskEstimate(day, probability, level, top, degraded), nil
}

// normalizeDays validates, deduplicates, and sorts the requested lead days.
func normalizeDays(days []int, maxLeadDays int) ([]int, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("no lead days requested")
	}
	seen := make(map[int]bool, len(days))
	sorted := make([]int, 0, len(days))
	for _, d := range days {
		if d < 1 || d > maxLeadDays {
			return nil, fmt.Errorf("lead day %d outside 1..%d", d, maxLeadDays)
		}
		if !seen[d] {
			seen[d] = true
			sorted = append(sorted, d)
		}
	}
	sort.Ints(sorted)
	return sorted, nil
}

// isFatal classifies errors that must abort the whole batch rather than mark
// a single day slot.
func isFatal(err error) bool {
	var cfgErr *domain.EnsembleConfigError
	var unknown *domain.UnknownFeatureError
	var missing *domain.MissingFeatureError
	return errors.Is(err, domain.ErrNoModelAvailable) ||
		errors.As(err, &cfgErr) ||
		errors.As(err, &unknown) ||
		errors.As(err, &missing)
}
