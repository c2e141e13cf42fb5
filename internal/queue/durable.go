// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package queue

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const (
	// DefaultKeyPrefix namespaces the persisted keys.
	DefaultKeyPrefix = "logship"

	// DefaultEntryBudget is the serialized byte allowance per entry of capacity.
	DefaultEntryBudget = 512

	probeSuffix = "-probe"
)

// DurableOptions configures a Durable queue.
type DurableOptions struct {
	// KeyPrefix produces the keys <prefix>-queue and <prefix>-sent.
	KeyPrefix string

	// EntryBudget multiplied by capacity bounds the serialized pending size.
	EntryBudget int

	// Logger receives store errors. It must not feed back into the pipeline.
	Logger zerolog.Logger

	// OnEvict is called with the number of entries dropped by persist.
	OnEvict func(n int)

	// OnStoreError is called with the failing operation name.
	OnStoreError func(op string)
}

// Durable is a queue whose state is mirrored into a KV store after every
// mutation, so a restarted process resumes where the previous one stopped.
type Durable struct {
	kv       KV
	capacity int
	budget   int
	queueKey string
	sentKey  string
	log      zerolog.Logger
	onEvict  func(int)
	onError  func(string)

	pending  []string
	inFlight Batch
	evicted  uint64
}

// NewDurable probes kv and recovers any state left by a previous process.
// A batch that was in flight is treated as never delivered and placed ahead
// of the persisted pending entries. It returns ErrDurableUnavailable if the
// probe fails.
func NewDurable(kv KV, capacity int, opts DurableOptions) (*Durable, error) {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.EntryBudget <= 0 {
		opts.EntryBudget = DefaultEntryBudget
	}
	q := &Durable{
		kv:       kv,
		capacity: capacity,
		budget:   capacity * opts.EntryBudget,
		queueKey: opts.KeyPrefix + "-queue",
		sentKey:  opts.KeyPrefix + "-sent",
		log:      opts.Logger,
		onEvict:  opts.OnEvict,
		onError:  opts.OnStoreError,
	}

	if err := probe(kv, opts.KeyPrefix+probeSuffix); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDurableUnavailable, err)
	}

	sent, err := q.load(q.sentKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDurableUnavailable, err)
	}
	pending, err := q.load(q.queueKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDurableUnavailable, err)
	}
	q.pending = prepend(sent, pending)
	if len(sent) > 0 {
		q.log.Info().Int("entries", len(sent)).Msg("Recovered unconfirmed batch")
	}
	q.remove(q.sentKey)
	q.persist()
	return q, nil
}

func probe(kv KV, key string) error {
	if err := kv.Set(key, []byte("1")); err != nil {
		return err
	}
	return kv.Remove(key)
}

// load reads a JSON array of entries. A missing key or an unreadable value
// yields an empty slice; only store failures are returned.
func (q *Durable) load(key string) ([]string, error) {
	raw, err := q.kv.Get(key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []string
	if err := json.Unmarshal(raw, &entries); err != nil {
		q.log.Warn().Err(err).Str("key", key).Msg("Discarding unreadable persisted queue")
		return nil, nil
	}
	return entries, nil
}

// Push appends entry and persists.
func (q *Durable) Push(entry string) {
	q.pending = append(q.pending, entry)
	q.persist()
}

// FormBatch records pending as the in-flight batch, then clears pending.
// It is idempotent until Confirm or Fail.
func (q *Durable) FormBatch() Batch {
	if len(q.inFlight) > 0 {
		return q.inFlight
	}
	q.inFlight = Batch(q.pending)
	if len(q.inFlight) > 0 {
		q.write(q.sentKey, q.inFlight)
	}
	q.pending = nil
	q.persist()
	return q.inFlight
}

// Confirm clears the in-flight batch and its persisted copy.
func (q *Durable) Confirm() {
	q.inFlight = nil
	q.remove(q.sentKey)
}

// Fail returns the in-flight batch to the front of pending.
func (q *Durable) Fail() {
	q.pending = prepend(q.inFlight, q.pending)
	q.persist()
	q.Confirm()
}

// Unshift places entries ahead of everything pending and persists.
func (q *Durable) Unshift(entries []string) {
	if len(entries) == 0 {
		return
	}
	q.pending = prepend(entries, q.pending)
	q.persist()
}

// Size returns the number of pending entries.
func (q *Durable) Size() int { return len(q.pending) }

// InFlightSize returns the number of entries awaiting confirmation.
func (q *Durable) InFlightSize() int { return len(q.inFlight) }

// Capacity returns the entry capacity the byte budget is derived from.
func (q *Durable) Capacity() int { return q.capacity }

// Evicted returns how many entries persist has dropped since creation.
func (q *Durable) Evicted() uint64 { return q.evicted }

// Pending returns a copy of the pending entries.
func (q *Durable) Pending() []string {
	return append([]string(nil), q.pending...)
}

// persist writes pending to the store, dropping the oldest entries while the
// encoding exceeds the byte budget or the store reports it is full. Other
// store errors abandon the write.
func (q *Durable) persist() {
	dropped := 0
	defer func() {
		if dropped > 0 {
			q.evicted += uint64(dropped)
			if q.onEvict != nil {
				q.onEvict(dropped)
			}
		}
	}()

	for {
		data, err := json.Marshal(q.pending)
		if err != nil {
			q.storeError("encode", err)
			return
		}
		if len(q.pending) > 0 && len(data) >= q.budget {
			q.pending = q.pending[1:]
			dropped++
			continue
		}
		err = q.kv.Set(q.queueKey, data)
		if err == nil {
			return
		}
		if errors.Is(err, ErrQuota) && len(q.pending) > 0 {
			q.pending = q.pending[1:]
			dropped++
			continue
		}
		q.storeError("set", err)
		return
	}
}

func (q *Durable) write(key string, entries []string) {
	data, err := json.Marshal(entries)
	if err != nil {
		q.storeError("encode", err)
		return
	}
	if err := q.kv.Set(key, data); err != nil {
		q.storeError("set", err)
	}
}

func (q *Durable) remove(key string) {
	if err := q.kv.Remove(key); err != nil {
		q.storeError("remove", err)
	}
}

func (q *Durable) storeError(op string, err error) {
	q.log.Warn().Err(err).Str("op", op).Msg("Durable store operation skipped")
	if q.onError != nil {
		q.onError(op)
	}
}
