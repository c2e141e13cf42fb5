// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package queue

// Volatile is a bounded in-memory queue.
type Volatile struct {
	capacity int
	evict    bool
	pending  []string
	inFlight Batch
	evicted  uint64
}

// NewVolatile creates a queue holding up to capacity entries. With evict set,
// Push drops the oldest pending entry once the pending count exceeds capacity.
// Fail always enforces the bound.
func NewVolatile(capacity int, evict bool) *Volatile {
	return &Volatile{capacity: capacity, evict: evict}
}

// Push appends entry.
func (q *Volatile) Push(entry string) {
	q.pending = append(q.pending, entry)
	if q.evict && len(q.pending) > q.capacity {
		q.pending = q.pending[1:]
		q.evicted++
	}
}

// FormBatch moves pending into flight. It is idempotent until Confirm or Fail.
func (q *Volatile) FormBatch() Batch {
	if len(q.inFlight) > 0 {
		return q.inFlight
	}
	q.inFlight = Batch(q.pending)
	q.pending = nil
	return q.inFlight
}

// Confirm clears the in-flight batch.
func (q *Volatile) Confirm() {
	q.inFlight = nil
}

// Fail returns the in-flight batch to the front of pending. When the queue
// would exceed capacity, the oldest entries of the failed batch are dropped
// first, continuing into pending if the batch is shorter than the overflow.
func (q *Volatile) Fail() {
	overflow := 1 + len(q.pending) + len(q.inFlight) - q.capacity
	if overflow > 0 {
		fromBatch := min(overflow, len(q.inFlight))
		q.inFlight = q.inFlight[fromBatch:]
		fromPending := min(overflow-fromBatch, len(q.pending))
		q.pending = q.pending[fromPending:]
		q.evicted += uint64(fromBatch + fromPending)
	}
	q.pending = prepend(q.inFlight, q.pending)
	q.inFlight = nil
}

// DrainAll empties the queue and returns the in-flight batch followed by the
// pending entries.
func (q *Volatile) DrainAll() []string {
	out := make([]string, 0, len(q.inFlight)+len(q.pending))
	out = append(out, q.inFlight...)
	out = append(out, q.pending...)
	q.inFlight = nil
	q.pending = nil
	return out
}

// Size returns the number of pending entries.
func (q *Volatile) Size() int { return len(q.pending) }

// InFlightSize returns the number of entries awaiting confirmation.
func (q *Volatile) InFlightSize() int { return len(q.inFlight) }

// Capacity returns the entry bound.
func (q *Volatile) Capacity() int { return q.capacity }

// Evicted returns how many entries have been dropped since creation.
func (q *Volatile) Evicted() uint64 { return q.evicted }

// prepend returns front followed by back in a fresh slice.
func prepend(front []string, back []string) []string {
	if len(front) == 0 {
		return back
	}
	out := make([]string, 0, len(front)+len(back))
	out = append(out, front...)
	return append(out, back...)
}
