// Command publish reads candidate/job matches from a CSV file and publishes
// them as match requests to the pipeline's source topic.
//
// The CSV columns are id, candidate_postcode, job_postcode and an optional
// unit. A header row is skipped when present.
//
// Usage:
//
//	go run ./cmd/publish -file matches.csv
//	cat matches.csv | go run ./cmd/publish
//
// KAFKA_BROKERS, KAFKA_SOURCE_TOPIC and BATCH_SIZE are read from the
// environment (or a .env file) as for the server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/couchcryptid/postcode-distance-service/internal/adapter/kafka"
	"github.com/couchcryptid/postcode-distance-service/internal/config"
	"github.com/couchcryptid/postcode-distance-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	file := flag.String("file", "", "CSV file of matches (default: stdin)")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var in io.Reader = os.Stdin
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	requests, err := readMatchRequests(in)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		return errors.New("no match requests found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSourceTopic, logger)
	defer writer.Close()

	published, err := publish(ctx, writer, requests, cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("published %d of %d: %w", published, len(requests), err)
	}
	logger.Info("published match requests", "count", published, "topic", cfg.KafkaSourceTopic)
	return nil
}

type batchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// publish writes requests in batches of batchSize and returns how many were written.
func publish(ctx context.Context, loader batchLoader, requests []domain.MatchRequest, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = len(requests)
	}
	published := 0
	for start := 0; start < len(requests); start += batchSize {
		end := min(start+batchSize, len(requests))
		batch := make([]domain.OutputEvent, 0, end-start)
		for _, req := range requests[start:end] {
			out, err := domain.SerializeMatchRequest(req)
			if err != nil {
				return published, err
			}
			batch = append(batch, out)
		}
		if err := loader.LoadBatch(ctx, batch); err != nil {
			return published, err
		}
		published += len(batch)
	}
	return published, nil
}
