// Package config loads the ingestion core's bootstrap configuration.
//
// Almost everything lives in the relational config table (loaded by
// internal/vocabulary and internal/aiprovider at runtime); this package
// only owns the environment-override knobs plus the connection strings needed to reach Postgres, the
// object store, and Redis in the first place.
//
// Loading order, lowest to highest priority: in-code defaults, an optional
// YAML file (KGRAPH_CONFIG, default config/base.yaml), then environment
// variables. The merged result is validated before it is handed out; a
// validation failure refuses startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// ProviderPolicy is the per-provider concurrency/retry override, settable
// through "{PROVIDER}_MAX_CONCURRENT" and "{PROVIDER}_MAX_RETRIES".
type ProviderPolicy struct {
	MaxConcurrentRequests int `yaml:"max_concurrent_requests" validate:"min=1,max=256"`
	MaxRetries            int `yaml:"max_retries" validate:"min=0,max=16"`
}

// Config holds the process's bootstrap configuration.
type Config struct {
	Environment Environment `yaml:"environment" validate:"required,oneof=development staging production"`
	LogLevel    string      `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// PostgresDSN addresses the relational store that also hosts the graph
	// extension used by the graph store (Apache-AGE-style property graph over SQL).
	PostgresDSN string `yaml:"postgres_dsn" validate:"required"`
	// PostgresPoolMin / Max size the shared pool: at least the parallel
	// worker count plus buffer. Defaults min=1, max=20.
	PostgresPoolMin int32 `yaml:"postgres_pool_min" validate:"min=1"`
	PostgresPoolMax int32 `yaml:"postgres_pool_max" validate:"min=1,gtefield=PostgresPoolMin"`

	ObjectStoreEndpoint  string `yaml:"object_store_endpoint" validate:"omitempty,url"`
	ObjectStoreBucket    string `yaml:"object_store_bucket" validate:"required,min=3,max=63"`
	ObjectStoreRegion    string `yaml:"object_store_region" validate:"required"`
	ObjectStoreAccessKey string `yaml:"object_store_access_key"`
	ObjectStoreSecretKey string `yaml:"object_store_secret_key"`

	// RedisAddr is optional; when set, the scheduler takes a Redis tick-lock,
	// and when empty it runs without cross-process coordination (single
	// scheduler instance). Provider semaphores are always in-process.
	RedisAddr string `yaml:"redis_addr" validate:"omitempty,hostname_port"`

	// MaxConcurrentThreads is the process-wide hard upper bound.
	MaxConcurrentThreads int `yaml:"max_concurrent_threads" validate:"min=1,max=256"`

	// UpsertThreshold is the cosine-similarity threshold for concept
	// upsert-by-meaning.
	UpsertThreshold float64 `yaml:"upsert_threshold" validate:"gt=0,lte=1"`

	// VocabularyChangeThreshold gates epistemic remeasurement launches.
	VocabularyChangeThreshold int64 `yaml:"vocabulary_change_threshold" validate:"min=1"`

	ProviderPolicies map[string]ProviderPolicy `yaml:"provider_policies" validate:"dive"`
}

// Load builds a Config from defaults, the optional YAML file, and the
// environment, lowest to highest priority.
func Load() (*Config, error) {
	cfg := defaultConfig()

	path := getEnv("KGRAPH_CONFIG", "config/base.yaml")
	if err := loadFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}

	applyEnvironment(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Environment:               Development,
		PostgresDSN:               "postgres://localhost:5432/kgraph?sslmode=disable",
		PostgresPoolMin:           1,
		PostgresPoolMax:           20,
		ObjectStoreBucket:         "kgraph",
		ObjectStoreRegion:         "us-east-1",
		MaxConcurrentThreads:      32,
		UpsertThreshold:           0.85,
		VocabularyChangeThreshold: 10,
		ProviderPolicies: map[string]ProviderPolicy{
			"ollama":    {MaxConcurrentRequests: 1, MaxRetries: 3},
			"anthropic": {MaxConcurrentRequests: 4, MaxRetries: 8},
			"openai":    {MaxConcurrentRequests: 8, MaxRetries: 8},
			"mock":      {MaxConcurrentRequests: 100, MaxRetries: 0},
		},
	}
}

// loadFile overlays a YAML file onto cfg. A missing file is not an error:
// deployments that configure purely through the environment carry no file.
func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func applyEnvironment(cfg *Config) {
	cfg.Environment = Environment(getEnv("APP_ENV", string(cfg.Environment)))
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.PostgresDSN = getEnv("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.PostgresPoolMin = int32(getEnvInt("POSTGRES_POOL_MIN", int(cfg.PostgresPoolMin)))
	cfg.PostgresPoolMax = int32(getEnvInt("POSTGRES_POOL_MAX", int(cfg.PostgresPoolMax)))
	cfg.ObjectStoreEndpoint = getEnv("OBJECT_STORE_ENDPOINT", cfg.ObjectStoreEndpoint)
	cfg.ObjectStoreBucket = getEnv("OBJECT_STORE_BUCKET", cfg.ObjectStoreBucket)
	cfg.ObjectStoreRegion = getEnv("OBJECT_STORE_REGION", cfg.ObjectStoreRegion)
	cfg.ObjectStoreAccessKey = getEnv("OBJECT_STORE_ACCESS_KEY", cfg.ObjectStoreAccessKey)
	cfg.ObjectStoreSecretKey = getEnv("OBJECT_STORE_SECRET_KEY", cfg.ObjectStoreSecretKey)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.MaxConcurrentThreads = getEnvInt("MAX_CONCURRENT_THREADS", cfg.MaxConcurrentThreads)
	cfg.UpsertThreshold = getEnvFloat("UPSERT_THRESHOLD", cfg.UpsertThreshold)
	cfg.VocabularyChangeThreshold = int64(getEnvInt("VOCABULARY_CHANGE_THRESHOLD", int(cfg.VocabularyChangeThreshold)))

	for name, current := range cfg.ProviderPolicies {
		prefix := strings.ToUpper(name)
		cfg.ProviderPolicies[name] = ProviderPolicy{
			MaxConcurrentRequests: getEnvInt(prefix+"_MAX_CONCURRENT", current.MaxConcurrentRequests),
			MaxRetries:            getEnvInt(prefix+"_MAX_RETRIES", current.MaxRetries),
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
