/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "remotestore.db", cfg.SQLitePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"REMOTESTORE_BACKEND":        " DynamoDB ",
		"REMOTESTORE_AWS_REGION":     "eu-west-1",
		"REMOTESTORE_DYNAMODB_TABLE": "remotestore",
		"DYNAMODB_TABLE":             "unprefixed is ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, BackendDynamoDB, cfg.Backend)
	assert.Equal(t, "eu-west-1", cfg.AWSRegion)
	assert.Equal(t, "remotestore", cfg.DynamoDBTable)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"REMOTESTORE_BACKEND=memory\nREMOTESTORE_LOG_LEVEL=debug\n"), 0o600))

	cfg, err := LoadFrom(map[string]string{"REMOTESTORE_LOG_LEVEL": "warn"}, path)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, "warn", cfg.LogLevel, "the environment wins over env files")

	_, err = LoadFrom(nil, filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{Backend: BackendSQLite, SQLitePath: "x.db", LogLevel: "info", LogFormat: "text"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Backend = "redis" }},
		{"sqlite without path", func(c *Config) { c.SQLitePath = " " }},
		{"dynamodb without table", func(c *Config) { c.Backend = BackendDynamoDB; c.AWSRegion = "us-east-1" }},
		{"dynamodb without region", func(c *Config) { c.Backend = BackendDynamoDB; c.DynamoDBTable = "t" }},
		{"half credentials", func(c *Config) {
			c.Backend = BackendDynamoDB
			c.DynamoDBTable = "t"
			c.AWSRegion = "us-east-1"
			c.AWSAccessKeyID = "AKIA"
		}},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := Config{LogLevel: "warn", LogFormat: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = Config{LogLevel: "debug", LogFormat: "text"}.NewLogger(&buf)
	logger.Debug("details")
	assert.Contains(t, buf.String(), "msg=details")
}
