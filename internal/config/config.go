// Package config loads pushdump settings from an optional TOML file, an
// optional .env file and PUSHDUMP_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/alfredjeanlab/pushdump/internal/model"
)

// Error policies for lines that fail to decode.
const (
	OnErrorSkip  = "skip"
	OnErrorAbort = "abort"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

type Config struct {
	Backend       string `toml:"backend"`        // PUSHDUMP_BACKEND (default "postgres")
	DatabaseURL   string `toml:"database_url"`   // PUSHDUMP_DATABASE_URL (postgres backend)
	MongoURI      string `toml:"mongo_uri"`      // PUSHDUMP_MONGO_URI (mongo backend)
	MongoDatabase string `toml:"mongo_database"` // PUSHDUMP_MONGO_DATABASE (default "pushdump")
	NATSURL       string `toml:"nats_url"`       // PUSHDUMP_NATS_URL (optional, empty = no events)
	GRPCAddr      string `toml:"grpc_addr"`      // PUSHDUMP_GRPC_ADDR (default ":9090")
	HTTPAddr      string `toml:"http_addr"`      // PUSHDUMP_HTTP_ADDR (default ":8080")
	LogLevel      string `toml:"log_level"`      // PUSHDUMP_LOG_LEVEL (default "info")
	AuthToken     string `toml:"auth_token"`     // PUSHDUMP_AUTH_TOKEN (optional, empty = no auth)

	// Pipeline settings
	Workers   int    `toml:"workers"`    // PUSHDUMP_WORKERS (default NumCPU)
	BatchSize int    `toml:"batch_size"` // PUSHDUMP_BATCH_SIZE (default 500)
	OnError   string `toml:"on_error"`   // PUSHDUMP_ON_ERROR (skip|abort, default skip)
	MaxErrors int    `toml:"max_errors"` // PUSHDUMP_MAX_ERRORS (default 0 = unlimited)

	// Object storage settings
	S3Region   string `toml:"s3_region"`   // PUSHDUMP_S3_REGION (default "us-east-1")
	S3Endpoint string `toml:"s3_endpoint"` // PUSHDUMP_S3_ENDPOINT (custom endpoint for MinIO)

	// Reject sink settings
	Rejects         string        `toml:"rejects"`          // PUSHDUMP_REJECTS (file path or s3:// URL; empty = discard)
	RejectsInterval time.Duration `toml:"rejects_interval"` // PUSHDUMP_REJECTS_INTERVAL (daemon flush period, default 1m)

	// Filter applies to every run; only settable from the file.
	Filter model.RecordFilter `toml:"filter"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Backend:         BackendPostgres,
		MongoDatabase:   "pushdump",
		GRPCAddr:        ":9090",
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		Workers:         runtime.NumCPU(),
		BatchSize:       500,
		OnError:         OnErrorSkip,
		S3Region:        "us-east-1",
		RejectsInterval: time.Minute,
	}
}

// Load builds the configuration. path names a TOML file; when empty,
// PUSHDUMP_CONFIG is consulted, and when that is empty too no file is read.
// A .env file in the working directory is loaded first if present; it
// never overrides variables already set in the environment.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	c := Default()

	if path == "" {
		path = os.Getenv("PUSHDUMP_CONFIG")
	}
	if path != "" {
		md, err := toml.DecodeFile(path, c)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	}

	c.Backend = envOrDefault("PUSHDUMP_BACKEND", c.Backend)
	c.DatabaseURL = envOrDefault("PUSHDUMP_DATABASE_URL", c.DatabaseURL)
	c.MongoURI = envOrDefault("PUSHDUMP_MONGO_URI", c.MongoURI)
	c.MongoDatabase = envOrDefault("PUSHDUMP_MONGO_DATABASE", c.MongoDatabase)
	c.NATSURL = envOrDefault("PUSHDUMP_NATS_URL", c.NATSURL)
	c.GRPCAddr = envOrDefault("PUSHDUMP_GRPC_ADDR", c.GRPCAddr)
	c.HTTPAddr = envOrDefault("PUSHDUMP_HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = envOrDefault("PUSHDUMP_LOG_LEVEL", c.LogLevel)
	c.AuthToken = envOrDefault("PUSHDUMP_AUTH_TOKEN", c.AuthToken)
	c.OnError = envOrDefault("PUSHDUMP_ON_ERROR", c.OnError)
	c.S3Region = envOrDefault("PUSHDUMP_S3_REGION", c.S3Region)
	c.S3Endpoint = envOrDefault("PUSHDUMP_S3_ENDPOINT", c.S3Endpoint)
	c.Rejects = envOrDefault("PUSHDUMP_REJECTS", c.Rejects)

	for _, iv := range []struct {
		key string
		dst *int
	}{
		{"PUSHDUMP_WORKERS", &c.Workers},
		{"PUSHDUMP_BATCH_SIZE", &c.BatchSize},
		{"PUSHDUMP_MAX_ERRORS", &c.MaxErrors},
	} {
		if v := os.Getenv(iv.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", iv.key, err)
			}
			*iv.dst = n
		}
	}

	if v := os.Getenv("PUSHDUMP_REJECTS_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PUSHDUMP_REJECTS_INTERVAL: %w", err)
		}
		c.RejectsInterval = d
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks values that every command depends on. Backend
// connection strings are checked separately by RequireStore.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPostgres, BackendMongo:
	default:
		return fmt.Errorf("PUSHDUMP_BACKEND: unknown backend %q", c.Backend)
	}
	switch c.OnError {
	case OnErrorSkip, OnErrorAbort:
	default:
		return fmt.Errorf("PUSHDUMP_ON_ERROR: must be %q or %q, got %q", OnErrorSkip, OnErrorAbort, c.OnError)
	}
	if c.Workers < 1 {
		return fmt.Errorf("PUSHDUMP_WORKERS: must be at least 1, got %d", c.Workers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("PUSHDUMP_BATCH_SIZE: must be at least 1, got %d", c.BatchSize)
	}
	if c.MaxErrors < 0 {
		return fmt.Errorf("PUSHDUMP_MAX_ERRORS: must not be negative, got %d", c.MaxErrors)
	}
	if c.RejectsInterval < 0 {
		return fmt.Errorf("PUSHDUMP_REJECTS_INTERVAL: must not be negative, got %s", c.RejectsInterval)
	}
	if _, err := c.SlogLevel(); err != nil {
		return fmt.Errorf("PUSHDUMP_LOG_LEVEL: %w", err)
	}
	return nil
}

// RequireStore checks that the selected backend has a connection string.
func (c *Config) RequireStore() error {
	switch {
	case c.Backend == BackendPostgres && c.DatabaseURL == "":
		return errors.New("PUSHDUMP_DATABASE_URL is required for the postgres backend")
	case c.Backend == BackendMongo && c.MongoURI == "":
		return errors.New("PUSHDUMP_MONGO_URI is required for the mongo backend")
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, err
	}
	return l, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
