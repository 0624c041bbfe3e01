// Command postcode normalizes, looks up, and measures distances between UK
// postcodes from the command line. Results are printed as JSON.
//
// Usage:
//
//	go run ./cmd/postcode normalize "sw1a1aa"
//	go run ./cmd/postcode lookup BS14DJ
//	go run ./cmd/postcode bulk BS14DJ SW1A1AA M11AE
//	go run ./cmd/postcode distance -unit miles BS14DJ SW1A1AA
//
// POSTCODES_BASE_URL, POSTCODES_TIMEOUT and DEFAULT_UNIT are read from the
// environment (or a .env file) as for the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/postcode-distance-service/internal/adapter/postcodesio"
	"github.com/couchcryptid/postcode-distance-service/internal/config"
	"github.com/couchcryptid/postcode-distance-service/internal/domain"
	"github.com/couchcryptid/postcode-distance-service/internal/observability"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	resolver := postcodesio.NewClient(cfg.PostcodesBaseURL, cfg.PostcodesTimeout, observability.NewMetrics(), logger)
	app := &cli{
		service:     domain.NewDistanceService(resolver, logger),
		defaultUnit: cfg.DefaultUnit,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}
