package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// prediction pipeline.
type Metrics struct {
	PredictionRequests *prometheus.CounterVec // labels: outcome={ok,partial,error}
	DayPredictions     *prometheus.CounterVec // labels: risk_level={low,medium,high}
	DayFailures        prometheus.Counter
	DegradedMode       prometheus.Gauge
	ModelsLoaded       prometheus.Gauge

	FeatureDuration prometheus.Histogram
	ScoreDuration   prometheus.Histogram

	// Weather supplier metrics.
	UpstreamRequests *prometheus.CounterVec // labels: outcome={success,error}
	UpstreamDuration prometheus.Histogram
	SeriesCache      *prometheus.CounterVec // labels: result={hit,miss,expired}

	// Prediction publisher metrics.
	EstimatesPublished prometheus.Counter
	PublishErrors      prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PredictionRequests,
		m.DayPredictions,
		m.DayFailures,
		m.DegradedMode,
		m.ModelsLoaded,
		m.FeatureDuration,
		m.ScoreDuration,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.SeriesCache,
		m.EstimatesPublished,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PredictionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbreak_predictor",
			Name:      "prediction_requests_total",
			Help:      "Prediction requests by outcome.",
		}, []string{"outcome"}),
		DayPredictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbreak_predictor",
			Name:      "day_predictions_total",
			Help:      "Per-day risk estimates by resulting risk level.",
		}, []string{"risk_level"}),
		DayFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outbreak_predictor",
			Name:      "day_failures_total",
			Help:      "Per-day pipeline failures reported as error annotations.",
		}),
		DegradedMode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outbreak_predictor",
			Name:      "degraded_mode",
			Help:      "1 when scoring runs with a partial ensemble, 0 when all models are loaded.",
		}),
		ModelsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outbreak_predictor",
			Name:      "models_loaded",
			Help:      "Number of ensemble members currently loaded.",
		}),
		FeatureDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outbreak_predictor",
			Name:      "feature_engineering_duration_seconds",
			Help:      "Time to engineer one day's feature vector.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		ScoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outbreak_predictor",
			Name:      "score_duration_seconds",
			Help:      "Time to normalize, score, and rank one day's vector.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbreak_predictor",
			Name:      "upstream_requests_total",
			Help:      "Weather supplier requests by outcome.",
		}, []string{"outcome"}),
		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "outbreak_predictor",
			Name:      "upstream_request_duration_seconds",
			Help:      "Weather supplier request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SeriesCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outbreak_predictor",
			Name:      "series_cache_total",
			Help:      "Series cache lookups by result.",
		}, []string{"result"}),
		EstimatesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outbreak_predictor",
			Name:      "estimates_published_total",
			Help:      "Risk estimates published to the sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outbreak_predictor",
			Name:      "publish_errors_total",
			Help:      "Failed attempts to publish risk estimates.",
		}),
	}
}
