package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Model artifact directory (normalizer, classifiers, ensemble config).
	ModelDir string

	// Weather supplier configuration.
	OpenMeteoBaseURL string
	OpenMeteoTimeout time.Duration
	SeriesCacheSize  int
	SeriesCacheTTL   time.Duration
	PastDays         int
	ForecastDays     int

	// Concurrency cap for per-day pipelines within one request.
	PredictConcurrency int

	// Kafka prediction publishing (feature-flagged via KAFKA_BROKERS /
	// KAFKA_ENABLED).
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	openMeteoTimeout, err := parseDuration("OPENMETEO_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("SERIES_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("SERIES_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	pastDays, err := parsePositiveInt("PAST_DAYS", 30)
	if err != nil {
		return nil, err
	}
	forecastDays, err := parsePositiveInt("FORECAST_DAYS", 7)
	if err != nil {
		return nil, err
	}
	concurrency, err := parsePositiveInt("PREDICT_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ModelDir: envOrDefault("MODEL_DIR", "models"),

		OpenMeteoBaseURL: envOrDefault("OPENMETEO_BASE_URL", "https://api.open-meteo.com/v1/forecast"),
		OpenMeteoTimeout: openMeteoTimeout,
		SeriesCacheSize:  cacheSize,
		SeriesCacheTTL:   cacheTTL,
		PastDays:         pastDays,
		ForecastDays:     forecastDays,

		PredictConcurrency: concurrency,

		KafkaBrokers:   brokers,
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "disease-risk-predictions"),
		KafkaEnabled:   kafkaEnabled,
	}

	if cfg.ModelDir == "" {
		return nil, errors.New("MODEL_DIR is required")
	}
	if cfg.OpenMeteoBaseURL == "" {
		return nil, errors.New("OPENMETEO_BASE_URL is required")
	}
	if cfg.ForecastDays < 1 || cfg.ForecastDays > 16 {
		return nil, errors.New("FORECAST_DAYS must be between 1 and 16")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
