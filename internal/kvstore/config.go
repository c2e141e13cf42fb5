// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

// Package kvstore provides key/value backends for the durable queue: a
// BadgerDB store for production and an in-memory store for tests.
package kvstore

import (
	"fmt"
	"time"
)

// Config holds BadgerDB store configuration.
type Config struct {
	// Path is the directory where BadgerDB stores its files.
	// Should be on a durable filesystem (not tmpfs).
	Path string

	// InMemory keeps all data in memory. Path is ignored.
	InMemory bool

	// SyncWrites forces fsync after every write.
	// Set to false for higher throughput but risk of data loss on power failure.
	SyncWrites bool

	// MaxBytes caps the total size of stored values. Writes that would exceed
	// it fail with queue.ErrQuota. Zero means unlimited.
	MaxBytes int64

	// MemTableSize is the size of each memtable in bytes.
	MemTableSize int64

	// ValueLogFileSize is the size of each value log file in bytes.
	ValueLogFileSize int64

	// NumCompactors is the number of compaction workers.
	NumCompactors int

	// Compression enables Snappy compression.
	Compression bool

	// GCRatio is the ratio for value log garbage collection.
	// Default: 0.5
	GCRatio float64

	// GCInterval is the time between value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// CloseTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30s
	CloseTimeout time.Duration
}

// DefaultConfig returns a Config with defaults sized for a single queue.
func DefaultConfig() Config {
	return Config{
		Path:             "/var/lib/logship",
		SyncWrites:       true,
		MemTableSize:     16 * 1024 * 1024,
		ValueLogFileSize: 64 * 1024 * 1024,
		NumCompactors:    2,
		Compression:      true,
		GCRatio:          0.5,
		GCInterval:       10 * time.Minute,
		CloseTimeout:     30 * time.Second,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Path == "" && !c.InMemory {
		return &ConfigError{Field: "Path", Message: "path is required unless in-memory"}
	}
	if c.MaxBytes < 0 {
		return &ConfigError{Field: "MaxBytes", Message: "must not be negative"}
	}
	if c.NumCompactors != 0 && c.NumCompactors < 2 {
		return &ConfigError{Field: "NumCompactors", Message: "must be at least 2"}
	}
	if c.GCRatio < 0 || c.GCRatio >= 1 {
		return &ConfigError{Field: "GCRatio", Message: "must be in [0, 1)"}
	}
	return nil
}

// ConfigError describes an invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("kvstore config: %s %s", e.Field, e.Message)
}
