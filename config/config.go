/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package config loads remotestore settings from REMOTESTORE_* environment
// variables, optionally seeded from dotenv files.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "REMOTESTORE_"

// Backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// Config holds the runtime settings.
type Config struct {
	Backend    string `env:"BACKEND"     envDefault:"sqlite"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"remotestore.db"`

	AWSRegion          string `env:"AWS_REGION"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoDBTable      string `env:"DYNAMODB_TABLE"`
	DynamoDBEndpoint   string `env:"DYNAMODB_ENDPOINT"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the process environment. Variables from envFiles fill in
// anything the environment does not set; missing files are an error.
func Load(envFiles ...string) (Config, error) {
	return LoadFrom(environ(), envFiles...)
}

// LoadFrom is Load over an explicit environment.
func LoadFrom(environment map[string]string, envFiles ...string) (Config, error) {
	merged := make(map[string]string, len(environment))
	if len(envFiles) > 0 {
		fromFiles, err := godotenv.Read(envFiles...)
		if err != nil {
			return Config{}, fmt.Errorf("read env files: %w", err)
		}
		for k, v := range fromFiles {
			merged[k] = v
		}
	}
	for k, v := range environment {
		merged[k] = v
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Environment: merged,
		Prefix:      EnvPrefix,
	}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	return cfg, nil
}

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

// Validate checks backend specific requirements.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%sSQLITE_PATH is required for the sqlite backend", EnvPrefix)
		}
	case BackendDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("%sDYNAMODB_TABLE is required for the dynamodb backend", EnvPrefix)
		}
		if c.AWSRegion == "" {
			return fmt.Errorf("%sAWS_REGION is required for the dynamodb backend", EnvPrefix)
		}
		if (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
			return fmt.Errorf("%sAWS_ACCESS_KEY_ID and %sAWS_SECRET_ACCESS_KEY must be set together", EnvPrefix, EnvPrefix)
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendMemory, BackendSQLite, BackendDynamoDB)
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// NewLogger builds the logger described by the configuration. An invalid
// level falls back to info.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
