package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/couchcryptid/postcode-distance-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/postcode-distance-service/internal/adapter/kafka"
	"github.com/couchcryptid/postcode-distance-service/internal/adapter/postcodesio"
	"github.com/couchcryptid/postcode-distance-service/internal/config"
	"github.com/couchcryptid/postcode-distance-service/internal/domain"
	"github.com/couchcryptid/postcode-distance-service/internal/observability"
	"github.com/couchcryptid/postcode-distance-service/internal/pipeline"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := postcodesio.NewClient(cfg.PostcodesBaseURL, cfg.PostcodesTimeout, metrics, logger)
	var resolver domain.Resolver = client
	if cfg.PostcodesCacheSize > 0 {
		resolver = postcodesio.NewCachedResolver(client, cfg.PostcodesCacheSize, metrics)
		logger.Info("postcode cache enabled", "cache_size", cfg.PostcodesCacheSize)
	} else {
		logger.Info("postcode cache disabled")
	}
	logger.Info("postcodes.io client configured", "base_url", cfg.PostcodesBaseURL, "timeout", cfg.PostcodesTimeout)

	service := domain.NewDistanceService(resolver, logger)

	var ready observability.ReadinessGroup
	ready.Add("postcodes", client)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		wg     sync.WaitGroup
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.PipelineEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)
		transformer := pipeline.NewTransformer(service, cfg.DefaultUnit, metrics, logger)
		p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)
		ready.Add("pipeline", p)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
		logger.Info("match pipeline enabled",
			"source_topic", cfg.KafkaSourceTopic,
			"sink_topic", cfg.KafkaSinkTopic,
			"group_id", cfg.KafkaGroupID,
		)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, service, cfg.DefaultUnit, &ready, metrics, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Let the pipeline finish its current batch before closing the clients.
	wg.Wait()
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
