// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package kvstore

import (
	"fmt"
	"sync"

	"github.com/tomtom215/logship/internal/queue"
)

// Memory is an in-process queue.KV with an optional byte quota and
// injectable failures.
type Memory struct {
	mu       sync.Mutex
	data     map[string][]byte
	maxBytes int
	used     int
	fail     error
	writes   int
}

// NewMemory returns an empty store. maxBytes of zero means unlimited.
func NewMemory(maxBytes int) *Memory {
	return &Memory{data: make(map[string][]byte), maxBytes: maxBytes}
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	v, ok := m.data[key]
	if !ok {
		return nil, queue.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value.
func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	next := m.used - len(m.data[key]) + len(value)
	if m.maxBytes > 0 && next > m.maxBytes {
		return fmt.Errorf("set %s: %w", key, queue.ErrQuota)
	}
	m.data[key] = append([]byte(nil), value...)
	m.used = next
	m.writes++
	return nil
}

// Remove deletes key.
func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.used -= len(m.data[key])
	delete(m.data, key)
	return nil
}

// FailWith makes every subsequent operation return err. nil restores
// normal behavior.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Writes returns the number of successful Set calls.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Used returns the total size of stored values.
func (m *Memory) Used() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}
