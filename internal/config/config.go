// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package config

import (
	"os"
	"time"

	"github.com/tomtom215/logship/internal/kvstore"
	"github.com/tomtom215/logship/internal/logging"
	"github.com/tomtom215/logship/internal/pipeline"
	"github.com/tomtom215/logship/internal/transport"
)

// Transport kinds.
const (
	TransportHTTP = "http"
	TransportNATS = "nats"
)

// noTraceLevels disables stack capture when it is the only trace level.
const noTraceLevels = "none"

// Config holds the daemon configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: defaultConfig()
//  2. Config File: optional YAML file
//  3. Environment Variables: override any mapped setting
type Config struct {
	Shipper   ShipperConfig   `koanf:"shipper"`
	Transport TransportConfig `koanf:"transport"`
	Storage   StorageConfig   `koanf:"storage"`
	Source    SourceConfig    `koanf:"source"`
	Admin     AdminConfig     `koanf:"admin"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ShipperConfig configures the pipeline.
type ShipperConfig struct {
	// URL is the collector endpoint for the http transport.
	URL string `koanf:"url"`

	// Token is sent as a bearer credential when set.
	Token string `koanf:"token"`

	// Timeout bounds each delivery. Zero disables it.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`

	// Interval is the base pause between sends.
	Interval time.Duration `koanf:"interval" validate:"gte=0"`

	// Persist is the durable storage policy: default, always or never.
	Persist string `koanf:"persist" validate:"oneof=default always never"`

	// Capacity bounds each queue in entries. Zero picks a default from Persist.
	Capacity int `koanf:"capacity" validate:"gte=0"`

	// JSON frames entries as records.
	JSON bool `koanf:"json"`

	// TraceLevels lists the levels that carry a stack trace. A single
	// "none" disables traces.
	TraceLevels []string `koanf:"trace_levels" validate:"dive,oneof=none trace debug info warn error fatal panic"`

	// Depth drops extra frames from stack traces.
	Depth int `koanf:"depth" validate:"gte=0"`

	// KeyPrefix namespaces the durable store keys.
	KeyPrefix string `koanf:"key_prefix" validate:"required"`

	// EntryBudget is the byte allowance per entry of durable capacity.
	EntryBudget int `koanf:"entry_budget" validate:"gt=0"`

	// FlushTimeout bounds the final delivery attempt at shutdown.
	FlushTimeout time.Duration `koanf:"flush_timeout" validate:"gte=0"`

	// AttachLogger also ships the daemon's own log lines.
	AttachLogger bool `koanf:"attach_logger"`

	Backoff BackoffConfig `koanf:"backoff"`
}

// BackoffConfig parameterizes the retry interval growth.
type BackoffConfig struct {
	Multiplier float64       `koanf:"multiplier" validate:"gte=1"`
	Jitter     float64       `koanf:"jitter" validate:"gte=0,lte=1"`
	Limit      time.Duration `koanf:"limit" validate:"gte=0"`
}

// TransportConfig selects and tunes the delivery mechanism.
type TransportConfig struct {
	// Kind is http or nats.
	Kind string `koanf:"kind" validate:"oneof=http nats"`

	// Gzip compresses http request bodies.
	Gzip bool `koanf:"gzip"`

	// RateLimit caps http requests per second. Zero disables it.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
	Burst     int     `koanf:"burst" validate:"gte=0"`

	UserAgent string `koanf:"user_agent"`

	Breaker BreakerConfig `koanf:"breaker"`
	NATS    NATSConfig    `koanf:"nats"`
}

// BreakerConfig configures the circuit breaker around the transport.
type BreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests" validate:"gte=1"`
	Interval     time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
	MinRequests  uint32        `koanf:"min_requests" validate:"gte=1"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"gt=0,lte=1"`
}

// NATSConfig configures the nats transport.
type NATSConfig struct {
	URL             string        `koanf:"url"`
	Subject         string        `koanf:"subject"`
	Stream          string        `koanf:"stream"`
	DuplicateWindow time.Duration `koanf:"duplicate_window" validate:"gte=0"`
	Name            string        `koanf:"name"`
}

// StorageConfig configures the BadgerDB store behind the durable queue.
type StorageConfig struct {
	// Enabled turns durable storage on. When off the pipeline runs with
	// persist=never.
	Enabled bool `koanf:"enabled"`

	Path         string        `koanf:"path"`
	InMemory     bool          `koanf:"in_memory"`
	SyncWrites   bool          `koanf:"sync_writes"`
	MaxBytes     int64         `koanf:"max_bytes" validate:"gte=0"`
	Compression  bool          `koanf:"compression"`
	GCInterval   time.Duration `koanf:"gc_interval" validate:"gt=0"`
	GCRatio      float64       `koanf:"gc_ratio" validate:"gt=0,lt=1"`
	CloseTimeout time.Duration `koanf:"close_timeout" validate:"gt=0"`
}

// SourceConfig lists where log lines are read from.
type SourceConfig struct {
	// Stdin reads lines from standard input.
	Stdin bool `koanf:"stdin"`

	// Files are read line by line.
	Files []string `koanf:"files"`

	// Follow keeps reading files as they grow.
	Follow bool `koanf:"follow"`

	// PollInterval is how often a followed file is checked for new data.
	PollInterval time.Duration `koanf:"poll_interval" validate:"gt=0"`

	// Level is attached to every line read.
	Level string `koanf:"level" validate:"required"`
}

// AdminConfig configures the local admin endpoint.
type AdminConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr" validate:"required_if=Enabled true"`
}

// LoggingConfig configures the daemon's own log output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// PipelineOptions converts the shipper section into pipeline options.
func (c *Config) PipelineOptions() pipeline.Options {
	s := c.Shipper
	persist := pipeline.Persist(s.Persist)
	if !c.Storage.Enabled {
		persist = pipeline.PersistNever
	}

	traceLevels := s.TraceLevels
	if len(traceLevels) == 1 && traceLevels[0] == noTraceLevels {
		traceLevels = []string{}
	}

	return pipeline.Options{
		Token:       s.Token,
		Timeout:     s.Timeout,
		Interval:    s.Interval,
		IntervalSet: true,
		BackoffConfig: pipeline.BackoffConfig{
			Multiplier: s.Backoff.Multiplier,
			Jitter:     s.Backoff.Jitter,
			Limit:      s.Backoff.Limit,
			NoJitter:   s.Backoff.Jitter == 0,
		},
		Persist:     persist,
		Capacity:    s.Capacity,
		JSON:        s.JSON,
		TraceLevels: traceLevels,
		Depth:       s.Depth,
		KeyPrefix:   s.KeyPrefix,
		EntryBudget: s.EntryBudget,
	}
}

// HTTPConfig returns the http transport settings.
func (c *Config) HTTPConfig() transport.HTTPConfig {
	return transport.HTTPConfig{
		URL:       c.Shipper.URL,
		Gzip:      c.Transport.Gzip,
		RateLimit: c.Transport.RateLimit,
		Burst:     c.Transport.Burst,
		UserAgent: c.Transport.UserAgent,
	}
}

// NATSConfig returns the nats transport settings.
func (c *Config) NATSConfig() transport.NATSConfig {
	n := c.Transport.NATS
	return transport.NATSConfig{
		URL:             n.URL,
		Subject:         n.Subject,
		Stream:          n.Stream,
		DuplicateWindow: n.DuplicateWindow,
		Name:            n.Name,
	}
}

// BreakerConfig returns the circuit breaker settings, named after the
// transport kind.
func (c *Config) BreakerConfig() transport.BreakerConfig {
	b := c.Transport.Breaker
	return transport.BreakerConfig{
		Name:         c.Transport.Kind,
		MaxRequests:  b.MaxRequests,
		Interval:     b.Interval,
		Timeout:      b.Timeout,
		MinRequests:  b.MinRequests,
		FailureRatio: b.FailureRatio,
	}
}

// KVStoreConfig returns the BadgerDB settings, starting from the store's
// own defaults for tuning knobs the daemon does not expose.
func (c *Config) KVStoreConfig() kvstore.Config {
	s := c.Storage
	cfg := kvstore.DefaultConfig()
	cfg.Path = s.Path
	cfg.InMemory = s.InMemory
	cfg.SyncWrites = s.SyncWrites
	cfg.MaxBytes = s.MaxBytes
	cfg.Compression = s.Compression
	cfg.GCInterval = s.GCInterval
	cfg.GCRatio = s.GCRatio
	cfg.CloseTimeout = s.CloseTimeout
	return cfg
}

// LoggingConfig returns the zerolog settings. Output goes to stderr so that
// stdout stays free for piping.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		Caller:    c.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	}
}
