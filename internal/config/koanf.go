// evbus - durable in-process event bus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/evbus

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where a config file is searched for,
// in order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"evbus.yaml",
	"evbus.yml",
	"/etc/evbus/config.yaml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "EVBUS_CONFIG_PATH"

// Load builds the Config from, in increasing precedence: built-in defaults,
// an optional YAML file, and environment variables prefixed EVBUS_.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("EVBUS_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches EVBUS_CONFIG_PATH then DefaultConfigPaths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps EVBUS_-prefixed environment variable names to koanf
// dotted paths, e.g. EVBUS_DB_PATH -> store.path, EVBUS_RETRY_MAX_RETRIES ->
// retry.max_retries.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "EVBUS_"))

	mappings := map[string]string{
		"db_path":              "store.path",
		"db_wal":               "store.wal",
		"db_busy_timeout":      "store.busy_timeout",
		"retry_max_retries":    "retry.max_retries",
		"retry_base_delay":     "retry.base_delay",
		"retry_max_delay":      "retry.max_delay",
		"retry_multiplier":     "retry.backoff_multiplier",
		"circuit_window":       "circuit.window",
		"circuit_min_samples":  "circuit.min_samples",
		"circuit_failure_threshold": "circuit.failure_threshold",
		"circuit_pause":        "circuit.pause",
		"handler_timeout":      "handler_timeout",
		"shutdown_timeout":     "shutdown_timeout",
		"dlq_page_size":        "dlq_page_size",
		"log_level":            "log.level",
		"log_format":           "log.format",
	}

	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return strings.ReplaceAll(key, "_", ".")
}
