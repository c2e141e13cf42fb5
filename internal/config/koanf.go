// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"logship.yaml",
	"logship.yml",
	"/etc/logship/config.yaml",
	"/etc/logship/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "LOGSHIP_CONFIG"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Shipper: ShipperConfig{
			Timeout:      10 * time.Second,
			Interval:     time.Second,
			Persist:      "default",
			Capacity:     0, // picked from Persist
			TraceLevels:  []string{"trace", "warn", "error"},
			KeyPrefix:    "logship",
			EntryBudget:  512,
			FlushTimeout: 15 * time.Second,
			Backoff: BackoffConfig{
				Multiplier: 2,
				Jitter:     0.1,
				Limit:      30 * time.Second,
			},
		},
		Transport: TransportConfig{
			Kind:      TransportHTTP,
			Gzip:      false,
			UserAgent: "logship",
			Breaker: BreakerConfig{
				Enabled:      true,
				MaxRequests:  1,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				MinRequests:  5,
				FailureRatio: 0.6,
			},
			NATS: NATSConfig{
				URL:             "nats://127.0.0.1:4222",
				Subject:         "logs.batches",
				DuplicateWindow: 2 * time.Minute,
				Name:            "logship",
			},
		},
		Storage: StorageConfig{
			Enabled:      true,
			Path:         "/var/lib/logship",
			SyncWrites:   true,
			Compression:  true,
			GCInterval:   10 * time.Minute,
			GCRatio:      0.5,
			CloseTimeout: 30 * time.Second,
		},
		Source: SourceConfig{
			Stdin:        true,
			Follow:       false,
			PollInterval: time.Second,
			Level:        "info",
		},
		Admin: AdminConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources.
// Configuration is loaded in the following order (later sources override earlier):
//  1. Built-in defaults
//  2. Config file (if exists): logship.yaml or /etc/logship/config.yaml
//  3. Environment variables
//
// The config file path can be overridden with the LOGSHIP_CONFIG environment variable.
// Overrides, such as command line flags, are applied last, before validation.
func Load(overrides ...func(*Config)) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "" when
// there is none. An explicit LOGSHIP_CONFIG that does not exist is an error.
func findConfigFile() (string, error) {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("config file from %s: %w", ConfigPathEnvVar, err)
		}
		return envPath, nil
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", nil
}

// sliceConfigPaths lists the config paths that accept comma-separated
// values from the environment.
var sliceConfigPaths = []string{
	"shipper.trace_levels",
	"source.files",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	// Shipper
	"logship_url":                "shipper.url",
	"logship_token":              "shipper.token",
	"logship_timeout":            "shipper.timeout",
	"logship_interval":           "shipper.interval",
	"logship_persist":            "shipper.persist",
	"logship_capacity":           "shipper.capacity",
	"logship_json":               "shipper.json",
	"logship_trace_levels":       "shipper.trace_levels",
	"logship_depth":              "shipper.depth",
	"logship_key_prefix":         "shipper.key_prefix",
	"logship_entry_budget":       "shipper.entry_budget",
	"logship_attach_logger":      "shipper.attach_logger",
	"logship_flush_timeout":      "shipper.flush_timeout",
	"logship_backoff_multiplier": "shipper.backoff.multiplier",
	"logship_backoff_jitter":     "shipper.backoff.jitter",
	"logship_backoff_limit":      "shipper.backoff.limit",

	// Transport
	"logship_transport":             "transport.kind",
	"logship_gzip":                  "transport.gzip",
	"logship_rate_limit":            "transport.rate_limit",
	"logship_rate_burst":            "transport.burst",
	"logship_user_agent":            "transport.user_agent",
	"logship_breaker_enabled":       "transport.breaker.enabled",
	"logship_breaker_timeout":       "transport.breaker.timeout",
	"logship_breaker_failure_ratio": "transport.breaker.failure_ratio",
	"logship_breaker_min_requests":  "transport.breaker.min_requests",
	"logship_nats_url":              "transport.nats.url",
	"logship_nats_subject":          "transport.nats.subject",
	"logship_nats_stream":           "transport.nats.stream",
	"logship_nats_duplicate_window": "transport.nats.duplicate_window",
	"logship_nats_client_name":      "transport.nats.name",

	// Storage
	"logship_storage_enabled": "storage.enabled",
	"logship_data_dir":        "storage.path",
	"logship_storage_memory":  "storage.in_memory",
	"logship_sync_writes":     "storage.sync_writes",
	"logship_max_bytes":       "storage.max_bytes",
	"logship_gc_interval":     "storage.gc_interval",

	// Source
	"logship_stdin":         "source.stdin",
	"logship_files":         "source.files",
	"logship_follow":        "source.follow",
	"logship_poll_interval": "source.poll_interval",
	"logship_source_level":  "source.level",

	// Admin
	"logship_admin_enabled": "admin.enabled",
	"logship_admin_addr":    "admin.addr",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - LOGSHIP_URL -> shipper.url
//   - LOGSHIP_DATA_DIR -> storage.path
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	// For unmapped keys, return empty string to skip them.
	// This prevents random environment variables from polluting config.
	return envMappings[strings.ToLower(key)]
}
