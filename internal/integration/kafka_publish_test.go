//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/verdantlabs/outbreak-predictor/internal/adapter/kafka"
	"github.com/verdantlabs/outbreak-predictor/internal/config"
	"github.com/verdantlabs/outbreak-predictor/internal/domain"
	"github.com/verdantlabs/outbreak-predictor/internal/observability"
)

const testSinkTopic = "test-disease-risk-predictions"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-broker Kafka container and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// publishedRecord mirrors the sink message payload.
type publishedRecord struct {
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Disease     string   `json:"disease"`
	Day         int      `json:"day"`
	Probability float64  `json:"probability"`
	RiskLevel   string   `json:"risk_level"`
	TopFeatures []string `json:"top_features"`
	Degraded    bool     `json:"degraded"`
	Error       string   `json:"error"`
	GeneratedAt string   `json:"generated_at"`
}

type sinkMessage struct {
	Record  publishedRecord
	Key     string
	Headers map[string]string
}

func readSink(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec publishedRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal sink message")

	return sinkMessage{Record: rec, Key: string(msg.Key), Headers: headers}
}

// TestPublishEstimates verifies the writer round-trips a batch of estimates
// through real Kafka with keys, headers, and payload intact.
func TestPublishEstimates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}

	writer := kafka.NewWriter(cfg, discardLogger(), observability.NewMetricsForTesting())
	t.Cleanup(func() { _ = writer.Close() })

	generatedAt := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	estimates := []domain.RiskEstimate{
		{
			Day:         1,
			Probability: 0.56,
			RiskLevel:   domain.RiskMedium,
			TopFeatures: []string{"disease_favorability", "relative_humidity_2m_rolling_24h_mean"},
			GeneratedAt: generatedAt,
		},
		{
			Day:         3,
			Probability: 0.71,
			RiskLevel:   domain.RiskHigh,
			Degraded:    true,
			GeneratedAt: generatedAt,
		},
	}

	require.NoError(t, writer.PublishEstimates(ctx, 52.52, 13.41, "late_blight", estimates))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	byDay := map[int]sinkMessage{}
	for len(byDay) < len(estimates) {
		sm := readSink(ctx, t, consumer)
		byDay[sm.Record.Day] = sm
	}

	day1 := byDay[1]
	assert.Equal(t, "52.5200:13.4100:1", day1.Key)
	assert.Equal(t, 52.52, day1.Record.Latitude)
	assert.Equal(t, 13.41, day1.Record.Longitude)
	assert.Equal(t, "late_blight", day1.Record.Disease)
	assert.Equal(t, 0.56, day1.Record.Probability)
	assert.Equal(t, domain.RiskMedium, day1.Record.RiskLevel)
	assert.Equal(t, []string{"disease_favorability", "relative_humidity_2m_rolling_24h_mean"}, day1.Record.TopFeatures)
	assert.False(t, day1.Record.Degraded)
	assert.Equal(t, "late_blight", day1.Headers["disease"])
	assert.Equal(t, domain.RiskMedium, day1.Headers["risk_level"])
	assert.Equal(t, generatedAt.Format(time.RFC3339), day1.Headers["generated_at"])

	day3 := byDay[3]
	assert.Equal(t, "52.5200:13.4100:3", day3.Key)
	assert.True(t, day3.Record.Degraded)
	assert.Equal(t, domain.RiskHigh, day3.Record.RiskLevel)
}

// TestPublishEmptyBatch verifies an empty batch is a no-op, not an error.
func TestPublishEmptyBatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}

	writer := kafka.NewWriter(cfg, discardLogger(), observability.NewMetricsForTesting())
	t.Cleanup(func() { _ = writer.Close() })

	require.NoError(t, writer.PublishEstimates(ctx, 52.52, 13.41, "", nil))
}
