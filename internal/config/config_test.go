// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package config

import "testing"

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaultConfig().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"negative max_retries", func(c *Config) { c.Retry.MaxRetries = -1 }, true},
		{"multiplier below one", func(c *Config) { c.Retry.BackoffMultiplier = 0.5 }, true},
		{"zero min_samples", func(c *Config) { c.Circuit.MinSamples = 0 }, true},
		{"failure threshold at zero", func(c *Config) { c.Circuit.FailureThreshold = 0 }, true},
		{"failure threshold at one", func(c *Config) { c.Circuit.FailureThreshold = 1 }, true},
		{"zero dlq page size", func(c *Config) { c.DLQPageSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
