// Package kafka publishes finished risk estimates to a sink topic for
// downstream consumers (alerting, dashboards). Publishing is optional and
// feature-flagged; the prediction response never depends on it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/verdantlabs/outbreak-predictor/internal/config"
	"github.com/verdantlabs/outbreak-predictor/internal/domain"
	"github.com/verdantlabs/outbreak-predictor/internal/observability"
)

// Writer produces risk-estimate records to a Kafka topic.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// estimateRecord is the serialized form of one per-day estimate.
type estimateRecord struct {
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Disease     string   `json:"disease,omitempty"`
	Day         int      `json:"day"`
	Probability float64  `json:"probability"`
	RiskLevel   string   `json:"risk_level,omitempty"`
	TopFeatures []string `json:"top_features,omitempty"`
	Degraded    bool     `json:"degraded,omitempty"`
	Error       string   `json:"error,omitempty"`
	GeneratedAt string   `json:"generated_at"`
}

// PublishEstimates writes one message per estimate in a single WriteMessages
// call. Failed day slots are published too, so consumers see the full batch
// shape.
func (w *Writer) PublishEstimates(ctx context.Context, lat, lon float64, disease string, estimates []domain.RiskEstimate) error {
	if len(estimates) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, len(estimates))
	for i, est := range estimates {
		msg, err := serializeToMessage(lat, lon, disease, est)
		if err != nil {
			w.metrics.PublishErrors.Inc()
			return err
		}
		msgs[i] = msg
	}

	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		w.metrics.PublishErrors.Inc()
		return fmt.Errorf("write estimates: %w", err)
	}
	w.metrics.EstimatesPublished.Add(float64(len(msgs)))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one estimate into a Kafka message keyed by
// location and day so partitioning keeps a location's days together.
func serializeToMessage(lat, lon float64, disease string, est domain.RiskEstimate) (kafkago.Message, error) {
	rec := estimateRecord{
		Latitude:    lat,
		Longitude:   lon,
		Disease:     disease,
		Day:         est.Day,
		Probability: est.Probability,
		RiskLevel:   est.RiskLevel,
		TopFeatures: est.TopFeatures,
		Degraded:    est.Degraded,
		Error:       est.Error,
		GeneratedAt: est.GeneratedAt.Format(time.RFC3339),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize estimate: %w", err)
	}

	return kafkago.Message{
		Key:   []byte(fmt.Sprintf("%.4f:%.4f:%d", lat, lon, est.Day)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "disease", Value: []byte(disease)},
			{Key: "risk_level", Value: []byte(est.RiskLevel)},
			{Key: "generated_at", Value: []byte(est.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
