package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "models", cfg.ModelDir)
	assert.Equal(t, "https://api.open-meteo.com/v1/forecast", cfg.OpenMeteoBaseURL)
	assert.Equal(t, 30*time.Second, cfg.OpenMeteoTimeout)
	assert.Equal(t, 256, cfg.SeriesCacheSize)
	assert.Equal(t, time.Hour, cfg.SeriesCacheTTL)
	assert.Equal(t, 30, cfg.PastDays)
	assert.Equal(t, 7, cfg.ForecastDays)
	assert.Equal(t, 4, cfg.PredictConcurrency)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "disease-risk-predictions", cfg.KafkaSinkTopic)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("MODEL_DIR", "/var/lib/models")
	t.Setenv("OPENMETEO_BASE_URL", "http://localhost:8089/v1/forecast")
	t.Setenv("OPENMETEO_TIMEOUT", "5s")
	t.Setenv("SERIES_CACHE_SIZE", "64")
	t.Setenv("SERIES_CACHE_TTL", "15m")
	t.Setenv("PAST_DAYS", "14")
	t.Setenv("FORECAST_DAYS", "10")
	t.Setenv("PREDICT_CONCURRENCY", "8")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/var/lib/models", cfg.ModelDir)
	assert.Equal(t, "http://localhost:8089/v1/forecast", cfg.OpenMeteoBaseURL)
	assert.Equal(t, 5*time.Second, cfg.OpenMeteoTimeout)
	assert.Equal(t, 64, cfg.SeriesCacheSize)
	assert.Equal(t, 15*time.Minute, cfg.SeriesCacheTTL)
	assert.Equal(t, 14, cfg.PastDays)
	assert.Equal(t, 10, cfg.ForecastDays)
	assert.Equal(t, 8, cfg.PredictConcurrency)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeOpenMeteoTimeout(t *testing.T) {
	t.Setenv("OPENMETEO_TIMEOUT", "-5s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENMETEO_TIMEOUT")
}

func TestLoad_InvalidCacheSize(t *testing.T) {
	t.Setenv("SERIES_CACHE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERIES_CACHE_SIZE")
}

func TestLoad_InvalidPastDays(t *testing.T) {
	t.Setenv("PAST_DAYS", "abc")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAST_DAYS")
}

func TestLoad_ForecastDaysOutOfRange(t *testing.T) {
	t.Setenv("FORECAST_DAYS", "17")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORECAST_DAYS")
}

func TestLoad_KafkaBrokersImplyEnabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_BrokerListTrimsWhitespace(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " broker1:9092 , broker2:9092 ,")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}
