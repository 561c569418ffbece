// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

// Package config loads evbus runtime configuration from defaults, an
// optional YAML file, and environment variables, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"time"
)

// StoreConfig configures the durable event store.
type StoreConfig struct {
	// Path is the SQLite DSN or filesystem path for the event store.
	// Env: EVBUS_DB_PATH (default: ./evbus.db)
	Path string `koanf:"path"`

	// WAL is the configured journal-mode switch. evbstore.Open does not read
	// it: Open enables PRAGMA journal_mode=WAL for every file-backed path and
	// skips it for in-memory DSNs.
	// Env: EVBUS_DB_WAL (default: true)
	WAL bool `koanf:"wal"`

	// BusyTimeout is the configured wait on SQLITE_BUSY. evbstore.Open does
	// not read it: Open always applies PRAGMA busy_timeout=5000 (5s).
	// Env: EVBUS_DB_BUSY_TIMEOUT (default: 5s)
	BusyTimeout time.Duration `koanf:"busy_timeout"`
}

// RetryConfig mirrors the default retry policy (spec §3/§6).
type RetryConfig struct {
	MaxRetries        int           `koanf:"max_retries"`
	BaseDelay         time.Duration `koanf:"base_delay"`
	MaxDelay          time.Duration `koanf:"max_delay"`
	BackoffMultiplier float64       `koanf:"backoff_multiplier"`
}

// CircuitConfig configures the per-subscription circuit breaker (spec §4.4).
type CircuitConfig struct {
	Window           time.Duration `koanf:"window"`
	MinSamples       int           `koanf:"min_samples"`
	FailureThreshold float64       `koanf:"failure_threshold"`
	Pause            time.Duration `koanf:"pause"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Config is the top-level evbus configuration.
type Config struct {
	Store           StoreConfig   `koanf:"store"`
	Retry           RetryConfig   `koanf:"retry"`
	Circuit         CircuitConfig `koanf:"circuit"`
	Log             LogConfig     `koanf:"log"`
	HandlerTimeout  time.Duration `koanf:"handler_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	DLQPageSize     int           `koanf:"dlq_page_size"`
}

// defaultConfig returns the built-in defaults (spec §6 "Default constants").
// These are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:        "./evbus.db",
			WAL:         true,
			BusyTimeout: 5 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			BaseDelay:         time.Second,
			MaxDelay:          30 * time.Second,
			BackoffMultiplier: 2,
		},
		Circuit: CircuitConfig{
			Window:           60 * time.Second,
			MinSamples:       4,
			FailureThreshold: 0.5,
			Pause:            30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		HandlerTimeout:  30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		DLQPageSize:     100,
	}
}

// Validate checks invariants the zero-value defaults would otherwise hide.
func (c *Config) Validate() error {
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}
	if c.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("retry.backoff_multiplier must be >= 1")
	}
	if c.Circuit.MinSamples <= 0 {
		return fmt.Errorf("circuit.min_samples must be > 0")
	}
	if c.Circuit.FailureThreshold <= 0 || c.Circuit.FailureThreshold >= 1 {
		return fmt.Errorf("circuit.failure_threshold must be in (0, 1)")
	}
	if c.DLQPageSize <= 0 {
		return fmt.Errorf("dlq_page_size must be > 0")
	}
	return nil
}
