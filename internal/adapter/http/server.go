// Package http exposes the service's HTTP surface: health, readiness,
// metrics, and the prediction endpoint. It is a thin caller of the scoring
// pipeline and owns no scoring logic.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/verdantlabs/outbreak-predictor/internal/adapter/openmeteo"
	"github.com/verdantlabs/outbreak-predictor/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Scorer runs the per-day prediction pipeline.
type Scorer interface {
	Score(ctx context.Context, series *domain.Series, days []int, disease string) ([]domain.RiskEstimate, error)
}

// Publisher forwards finished estimates to downstream consumers. May be nil.
type Publisher interface {
	PublishEstimates(ctx context.Context, lat, lon float64, disease string, estimates []domain.RiskEstimate) error
}

// Server exposes health, readiness, metrics, and prediction HTTP endpoints.
type Server struct {
	httpServer *http.Server
	supplier   openmeteo.SeriesSupplier
	scorer     Scorer
	publisher  Publisher
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /api/v1/predict routes. publisher may be nil to disable downstream
// publishing.
func NewServer(addr string, ready ReadinessChecker, supplier openmeteo.SeriesSupplier, scorer Scorer, publisher Publisher, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		supplier:  supplier,
		scorer:    scorer,
		publisher: publisher,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/v1/predict", s.handlePredict)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

type predictRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	LeadDays  []int    `json:"lead_days"`
	Disease   string   `json:"disease"`
}

type predictResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`

	Location       *location             `json:"location,omitempty"`
	Disease        string                `json:"disease,omitempty"`
	RiskByDay      []domain.RiskEstimate `json:"risk_by_day,omitempty"`
	WeatherSummary *domain.WeatherSummary `json:"weather_summary,omitempty"`
	GeneratedAt    string                `json:"generated_at,omitempty"`
}

type location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	lat, lon := *req.Latitude, *req.Longitude
	if lat < -90 || lat > 90 {
		writeError(w, http.StatusBadRequest, "latitude must be between -90 and 90")
		return
	}
	if lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "longitude must be between -180 and 180")
		return
	}

	days := req.LeadDays
	if len(days) == 0 {
		days = []int{1, 2, 3, 4, 5, 6, 7}
	}
	for _, d := range days {
		if d < 1 || d > 7 {
			writeError(w, http.StatusBadRequest, "lead days must be between 1 and 7")
			return
		}
	}

	series, err := s.supplier.FetchSeries(r.Context(), lat, lon)
	if err != nil {
		s.logger.Error("weather fetch failed", "lat", lat, "lon", lon, "error", err)
		var upstream *domain.UpstreamDataError
		if errors.As(err, &upstream) {
			writeError(w, http.StatusBadGateway, "failed to fetch weather data")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch weather data")
		return
	}

	estimates, err := s.scorer.Score(r.Context(), series, days, req.Disease)
	if err != nil {
		s.writeScoreError(w, err)
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishEstimates(r.Context(), lat, lon, req.Disease, estimates); err != nil {
			// Publishing is best-effort; the response is already complete.
			s.logger.Warn("publish estimates failed", "error", err)
		}
	}

	summary := series.Summary(7 * domain.HoursPerDay)
	writeJSON(w, http.StatusOK, predictResponse{
		Status:         "ok",
		Location:       &location{Lat: lat, Lon: lon},
		Disease:        req.Disease,
		RiskByDay:      estimates,
		WeatherSummary: &summary,
		GeneratedAt:    time.Now().UTC().Format(time.RFC3339),
	})
}

// writeScoreError maps the error taxonomy onto HTTP statuses: invalid input
// is the caller's fault, missing models mean the service cannot serve yet,
// anything else is internal.
func (s *Server) writeScoreError(w http.ResponseWriter, err error) {
	var invalid *domain.InvalidSeriesError
	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNoModelAvailable):
		writeError(w, http.StatusServiceUnavailable, "prediction models unavailable")
	default:
		s.logger.Error("scoring failed", "error", err)
		writeError(w, http.StatusInternalServerError, "prediction failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, predictResponse{Status: "error", Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
