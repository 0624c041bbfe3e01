package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/postcode-distance-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// DefaultPostcodesBaseURL is the public postcodes.io API.
const DefaultPostcodesBaseURL = "https://api.postcodes.io"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// postcodes.io lookup configuration.
	PostcodesBaseURL   string
	PostcodesTimeout   time.Duration
	PostcodesCacheSize int
	DefaultUnit        domain.Unit

	// Match pipeline configuration.
	PipelineEnabled    bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	postcodesTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("POSTCODES_TIMEOUT", "10s"))
	if err != nil || postcodesTimeout <= 0 {
		return nil, errors.New("invalid POSTCODES_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	defaultUnit, err := domain.ParseUnit(sharedcfg.EnvOrDefault("DEFAULT_UNIT", "km"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_UNIT: %w", err)
	}

	pipelineEnabled, err := parseBool("PIPELINE_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		PostcodesBaseURL:   strings.TrimRight(sharedcfg.EnvOrDefault("POSTCODES_BASE_URL", DefaultPostcodesBaseURL), "/"),
		PostcodesTimeout:   postcodesTimeout,
		PostcodesCacheSize: parseCacheSize(),
		DefaultUnit:        defaultUnit,

		PipelineEnabled:    pipelineEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "candidate-job-matches"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "match-distances"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "postcode-distance"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if cfg.PostcodesBaseURL == "" {
		return nil, errors.New("POSTCODES_BASE_URL is required")
	}
	if cfg.PipelineEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}

	return cfg, nil
}

// parseCacheSize returns POSTCODES_CACHE_SIZE. Zero disables caching;
// negative or malformed values fall back to the default.
func parseCacheSize() int {
	if s := os.Getenv("POSTCODES_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return 1000
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// LoadDotEnv loads environment variables from .env files (default ".env")
// without overriding variables already set. A missing file is not an error.
func LoadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}
