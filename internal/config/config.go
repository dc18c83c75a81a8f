package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Registry backends accepted by REGISTRY_BACKEND.
const (
	RegistryMemory   = "memory"
	RegistryRedis    = "redis"
	RegistryPostgres = "postgres"
	RegistryFile     = "file"
)

// DefaultProviderURL is the covid19api-compatible base URL used when the
// provider is enabled without an explicit PROVIDER_URL.
const DefaultProviderURL = "https://api.covid19api.com"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka ingestion configuration.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Model registry configuration.
	RegistryBackend   string
	RedisURL          string
	DatabaseURL       string
	RegistryDir       string
	RegistryCacheSize int

	// Case-data provider configuration.
	ProviderEnabled bool
	ProviderURL     string
	ProviderTimeout time.Duration

	// Training configuration.
	TrainInterval time.Duration
	TestFraction  float64
	SplitSeed     uint64
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	providerTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("PROVIDER_TIMEOUT", "10s"))
	if err != nil || providerTimeout <= 0 {
		return nil, errors.New("invalid PROVIDER_TIMEOUT")
	}

	trainInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("TRAIN_INTERVAL", "0s"))
	if err != nil || trainInterval < 0 {
		return nil, errors.New("invalid TRAIN_INTERVAL")
	}

	testFraction, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("TEST_FRACTION", "0.2"), 64)
	if err != nil || testFraction < 0 || testFraction >= 1 {
		return nil, errors.New("invalid TEST_FRACTION: must be in [0, 1)")
	}

	splitSeed, err := strconv.ParseUint(sharedcfg.EnvOrDefault("SPLIT_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid SPLIT_SEED")
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	providerURL := os.Getenv("PROVIDER_URL")
	providerEnabled := providerURL != ""
	if v := os.Getenv("PROVIDER_ENABLED"); v != "" {
		providerEnabled = v == "true"
	}
	if providerURL == "" {
		providerURL = DefaultProviderURL
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       brokers,
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "case-observations"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "trend-models"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "case-trend"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		RegistryBackend:   sharedcfg.EnvOrDefault("REGISTRY_BACKEND", RegistryMemory),
		RedisURL:          os.Getenv("REDIS_URL"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RegistryDir:       sharedcfg.EnvOrDefault("REGISTRY_DIR", "models"),
		RegistryCacheSize: parseRegistryCacheSize(),

		ProviderEnabled: providerEnabled,
		ProviderURL:     providerURL,
		ProviderTimeout: providerTimeout,

		TrainInterval: trainInterval,
		TestFraction:  testFraction,
		SplitSeed:     splitSeed,
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}

	switch cfg.RegistryBackend {
	case RegistryMemory, RegistryFile:
	case RegistryRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REGISTRY_BACKEND is redis but REDIS_URL is not set")
		}
	case RegistryPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("REGISTRY_BACKEND is postgres but DATABASE_URL is not set")
		}
	default:
		return nil, fmt.Errorf("invalid REGISTRY_BACKEND %q", cfg.RegistryBackend)
	}

	return cfg, nil
}

// parseRegistryCacheSize returns REGISTRY_CACHE_SIZE; zero disables the cache.
func parseRegistryCacheSize() int {
	if s := os.Getenv("REGISTRY_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return 256
}
