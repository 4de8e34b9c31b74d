/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/datastore/bolt"
	"github.com/suparena/entitymapper/datastore/ddb"
	"github.com/suparena/entitymapper/datastore/mock"
)

// Backends accepted in MAPPER_BACKEND.
const (
	BackendDynamoDB = "dynamodb"
	BackendBolt     = "bolt"
	BackendMemory   = "memory"
)

// Config is the process configuration, read from the environment.
type Config struct {
	DynamoDB ddb.ClientConfig

	Backend  string
	BoltPath string

	LogLevel slog.Level
	LogJSON  bool

	// SchemaFile is the default YAML schema declaration file.
	SchemaFile string
}

// Load reads the given .env files (".env" when none are named; a missing
// file is not an error) and then the environment. Variables already set in
// the environment win over .env values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Config{
		DynamoDB: ddb.ClientConfig{
			AccessKey: os.Getenv("AWS_ACCESS_KEY"),
			SecretKey: os.Getenv("AWS_SECRET_KEY"),
			Region:    os.Getenv("AWS_REGION"),
			Endpoint:  os.Getenv("AWS_DDB_ENDPOINT"),
		},
		Backend:    strings.ToLower(getenv("MAPPER_BACKEND", BackendDynamoDB)),
		BoltPath:   getenv("MAPPER_BOLT_PATH", "entitymapper.db"),
		SchemaFile: os.Getenv("MAPPER_SCHEMA_FILE"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("MAPPER_LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("invalid MAPPER_LOG_LEVEL: %w", err)
	}
	if v := os.Getenv("MAPPER_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MAPPER_LOG_JSON: %w", err)
		}
		cfg.LogJSON = b
	}

	switch cfg.Backend {
	case BackendDynamoDB, BackendBolt, BackendMemory:
	default:
		return Config{}, fmt.Errorf("unknown MAPPER_BACKEND %q", cfg.Backend)
	}
	return cfg, nil
}

func getenv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// NewLogger builds a text or JSON logger at the configured level. A nil out
// means stderr.
func (c Config) NewLogger(out io.Writer) *slog.Logger {
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: c.LogLevel}

	var handler slog.Handler
	if c.LogJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// OpenStore opens the configured backend. The returned close function
// releases it and is never nil.
func (c Config) OpenStore(ctx context.Context, logger *slog.Logger) (datastore.Store, func() error, error) {
	noop := func() error { return nil }

	switch c.Backend {
	case BackendDynamoDB:
		store, err := ddb.NewFromConfig(ctx, c.DynamoDB, ddb.WithLogger(logger))
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case BackendBolt:
		store, err := bolt.Open(c.BoltPath, bolt.Options{Logger: logger, Timeout: 5 * time.Second})
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	case BackendMemory:
		return mock.New(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown backend %q", c.Backend)
}
