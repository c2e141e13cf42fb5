// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

// Package queue provides the two buffers of the shipping pipeline: a bounded
// in-memory queue and a queue persisted through a key/value store.
//
// Both hold a FIFO of pending entries plus at most one batch in flight. A
// batch is formed from everything pending, then either confirmed (delivered)
// or failed (returned to the front of the queue). Neither implementation is
// safe for concurrent use; the pipeline serializes access.
package queue

import "errors"

// Batch is an ordered group of entries sent in one delivery attempt.
type Batch []string

// Queue is the contract shared by Volatile and Durable.
type Queue interface {
	// Push appends an entry to the pending sequence.
	Push(entry string)

	// FormBatch moves all pending entries into flight and returns them.
	// While a batch is in flight it returns that batch unchanged.
	FormBatch() Batch

	// Confirm drops the in-flight batch after a successful delivery.
	Confirm()

	// Fail returns the in-flight batch to the front of the queue.
	Fail()

	// Size is the number of pending entries.
	Size() int

	// InFlightSize is the number of entries awaiting confirmation.
	InFlightSize() int
}

// KV is the key/value capability the durable queue persists through.
type KV interface {
	// Get returns the stored value or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set stores value under key. An error wrapping ErrQuota means the
	// store is full and a smaller value may still fit.
	Set(key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

var (
	// ErrNotFound is returned by KV.Get for absent keys.
	ErrNotFound = errors.New("queue: key not found")

	// ErrQuota is wrapped by KV.Set when the store has no room for the value.
	ErrQuota = errors.New("queue: storage quota exceeded")

	// ErrDurableUnavailable is returned by NewDurable when the store fails
	// its probe.
	ErrDurableUnavailable = errors.New("queue: durable storage unavailable")
)
