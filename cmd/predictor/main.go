package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	httpadapter "github.com/verdantlabs/outbreak-predictor/internal/adapter/http"
	kafkaadapter "github.com/verdantlabs/outbreak-predictor/internal/adapter/kafka"
	"github.com/verdantlabs/outbreak-predictor/internal/adapter/modelstore"
	"github.com/verdantlabs/outbreak-predictor/internal/adapter/openmeteo"
	"github.com/verdantlabs/outbreak-predictor/internal/config"
	"github.com/verdantlabs/outbreak-predictor/internal/domain"
	"github.com/verdantlabs/outbreak-predictor/internal/observability"
	"github.com/verdantlabs/outbreak-predictor/internal/pipeline"
)

func main() {
	_ = godotenv.Load() // local development convenience; absent in production

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	modelSet, err := modelstore.Load(cfg.ModelDir, logger)
	if err != nil {
		logger.Error("failed to load model artifacts", "dir", cfg.ModelDir, "error", err)
		os.Exit(1)
	}

	engine := domain.NewEngine(domain.DefaultFeatureConfig())
	predictor := pipeline.New(engine, modelSet, logger, metrics, cfg.PredictConcurrency)

	client := openmeteo.NewClient(cfg.OpenMeteoBaseURL, cfg.PastDays, cfg.ForecastDays, cfg.OpenMeteoTimeout, logger, metrics)
	supplier := openmeteo.NewCachedSupplier(client, cfg.SeriesCacheSize, cfg.SeriesCacheTTL, metrics)

	// Prediction publishing is feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED.
	var publisher httpadapter.Publisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger, metrics)
		publisher = kafkaWriter
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, predictor, supplier, predictor, publisher, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
