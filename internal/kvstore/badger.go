// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/tomtom215/logship/internal/logging"
	"github.com/tomtom215/logship/internal/metrics"
	"github.com/tomtom215/logship/internal/queue"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kvstore: store is closed")

// Badger implements queue.KV on top of BadgerDB.
type Badger struct {
	db     *badger.DB
	config Config

	mu     sync.Mutex
	used   int64
	closed bool
}

// Open opens (or creates) the store described by cfg.
func Open(cfg Config) (*Badger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	if cfg.GCRatio == 0 {
		cfg.GCRatio = 0.5
	}
	if cfg.CloseTimeout == 0 {
		cfg.CloseTimeout = 30 * time.Second
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites && !cfg.InMemory
	if cfg.MemTableSize > 0 {
		opts.MemTableSize = cfg.MemTableSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if cfg.NumCompactors > 0 {
		opts.NumCompactors = cfg.NumCompactors
	}
	if cfg.Compression {
		opts.Compression = options.Snappy
	}

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &Badger{db: db, config: cfg}
	if err := s.measure(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger := logging.Direct()
	logger.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Int64("max_bytes", cfg.MaxBytes).
		Msg("Durable store opened")
	return s, nil
}

// measure sums the sizes of the stored values.
func (s *Badger) measure() error {
	var used int64
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			used += it.Item().ValueSize()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("measure BadgerDB: %w", err)
	}
	s.used = used
	return nil
}

// Get returns the value stored under key, or queue.ErrNotFound.
func (s *Badger) Get(key string) ([]byte, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, queue.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key. When MaxBytes is set and the write would
// exceed it, the error wraps queue.ErrQuota.
func (s *Badger) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var delta int64
	err := s.db.Update(func(txn *badger.Txn) error {
		var previous int64
		item, err := txn.Get([]byte(key))
		switch {
		case err == nil:
			previous = item.ValueSize()
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		delta = int64(len(value)) - previous
		if s.config.MaxBytes > 0 && s.used+delta > s.config.MaxBytes {
			return fmt.Errorf("%d bytes over %d byte limit: %w", s.used+delta-s.config.MaxBytes, s.config.MaxBytes, queue.ErrQuota)
		}
		return txn.Set([]byte(key), value)
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("set %s: %w: %w", key, queue.ErrQuota, err)
	}
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	s.used += delta
	return nil
}

// Remove deletes key.
func (s *Badger) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var freed int64
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		freed = item.ValueSize()
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	s.used -= freed
	return nil
}

// Used returns the bytes currently accounted against MaxBytes.
func (s *Badger) Used() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

// RunGC runs value log garbage collection until nothing is left to rewrite.
func (s *Badger) RunGC() error {
	if s.isClosed() {
		return ErrClosed
	}
	if s.config.InMemory {
		return nil
	}
	metrics.StoreGCRuns.Inc()

	for {
		err := s.db.RunValueLogGC(s.config.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// RunGCLoop runs RunGC every GCInterval until ctx is done.
func (s *Badger) RunGCLoop(ctx context.Context) error {
	interval := s.config.GCInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunGC(); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				logger := logging.Direct()
				logger.Warn().Err(err).Msg("Durable store GC failed")
			}
		}
	}
}

// Close shuts the store down, giving up after CloseTimeout.
func (s *Badger) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	timeout := s.config.CloseTimeout
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logger := logging.Direct()
		logger.Info().Msg("Durable store closed")
		return nil
	case <-time.After(timeout):
		logger := logging.Direct()
		logger.Warn().Dur("timeout", timeout).Msg("BadgerDB close timed out")
		return fmt.Errorf("badgerdb close timeout after %v", timeout)
	}
}

func (s *Badger) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
