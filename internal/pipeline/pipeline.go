// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

// Package pipeline batches log entries and delivers them through a
// transport, retrying with backoff.
//
// Entries are received into one of two queues: an in-memory queue, or a
// durable queue persisted through a key/value store. While delivery
// succeeds entries are received in memory. The first failed send promotes
// the in-memory backlog into durable storage and keeps receiving there
// until a send succeeds again. The durable queue always drains first.
//
// At most one batch is in flight. Every send is followed by a pause: the
// base interval after a success, and a growing backoff interval after
// failures.
//
// All state is guarded by one mutex. Transport calls run on their own
// goroutine and re-enter under the mutex when they complete; a generation
// counter discards completions that arrive after Detach or Stop.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/tomtom215/logship/internal/format"
	"github.com/tomtom215/logship/internal/logging"
	"github.com/tomtom215/logship/internal/metrics"
	"github.com/tomtom215/logship/internal/queue"
	"github.com/tomtom215/logship/internal/transport"
)

var (
	// ErrNoTransport is returned by New without a transport.
	ErrNoTransport = errors.New("pipeline: transport is required")

	// ErrInvalidOptions wraps option validation failures.
	ErrInvalidOptions = errors.New("pipeline: invalid options")

	// ErrNoHost is returned by Attach with a nil host.
	ErrNoHost = errors.New("pipeline: host is required")

	// ErrAlreadyAttached is returned by Attach on an attached pipeline.
	ErrAlreadyAttached = errors.New("pipeline: already attached")

	// ErrNotAttached is returned by Detach on a detached pipeline.
	ErrNotAttached = errors.New("pipeline: not attached")

	// ErrSinkReplaced is returned by Detach when the host's sink is no
	// longer this pipeline.
	ErrSinkReplaced = errors.New("pipeline: host sink was replaced")

	// ErrStopped is returned by Flush on a stopped pipeline.
	ErrStopped = errors.New("pipeline: stopped")
)

// Host is a log framework whose output can be redirected to a sink.
// logging.Remote is the host for the process' global logger.
type Host interface {
	Sink() logging.Sink
	SetSink(logging.Sink)
}

// Pipeline ships entries to a transport.
type Pipeline struct {
	mu sync.Mutex

	opts      Options
	transport transport.Transport
	formatter *format.Formatter
	clock     clock.Clock
	log       zerolog.Logger

	volatile *queue.Volatile
	durable  *queue.Durable
	receiver queue.Queue
	sender   queue.Queue

	sending    bool
	suspended  bool
	stopped    bool
	interval   time.Duration
	generation uint64
	timer      *clock.Timer

	// current is the message on the wire. unconfirmed is the last message
	// that failed or was abandoned; an identical resend reuses its ID.
	current     *transport.Message
	unconfirmed *transport.Message

	// abandoned is set while a call started before Stop is outstanding.
	abandoned bool

	host     Host
	previous logging.Sink
	attached bool

	volatileEvicted uint64
	changed         chan struct{}
}

// New builds a pipeline delivering through t and persisting through kv.
// kv may be nil, in which case the pipeline runs in memory only. If kv
// fails its probe, the pipeline logs a warning and runs in memory only
// with the in-memory default capacity.
//
// Delivery starts here rather than at Attach, so a pipeline fed through
// SubmitEntry or Receive alone ships without ever attaching. Entries the
// store recovered from a previous run are sent immediately.
func New(t transport.Transport, kv queue.KV, opts Options) (*Pipeline, error) {
	if t == nil {
		return nil, ErrNoTransport
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	log := logging.Direct().With().Str("component", "pipeline").Logger()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	p := &Pipeline{
		transport: t,
		clock:     opts.Clock,
		log:       log,
		changed:   make(chan struct{}),
	}

	if opts.Persist != PersistNever {
		durable, err := openDurable(kv, opts, log)
		if err != nil {
			log.Warn().Err(err).Msg("Durable storage unavailable, buffering in memory only")
			opts.Persist = PersistNever
			opts.Capacity = DefaultVolatileCapacity
		}
		p.durable = durable
	}

	p.opts = opts
	p.interval = opts.Interval
	p.formatter = format.New(format.Options{
		JSON:        opts.JSON,
		TraceLevels: opts.TraceLevels,
		Depth:       opts.Depth + 1,
		Timestamp:   opts.Timestamp,
	})
	p.volatile = queue.NewVolatile(opts.Capacity, opts.Persist == PersistNever)
	p.receiver = p.volatile
	if opts.Persist == PersistAlways {
		p.receiver = p.durable
	}
	p.sender = p.receiver

	p.mu.Lock()
	p.observe()
	p.send()
	p.mu.Unlock()
	return p, nil
}

func openDurable(kv queue.KV, opts Options, log zerolog.Logger) (*queue.Durable, error) {
	if kv == nil {
		return nil, queue.ErrDurableUnavailable
	}
	return queue.NewDurable(kv, opts.Capacity, queue.DurableOptions{
		KeyPrefix:   opts.KeyPrefix,
		EntryBudget: opts.EntryBudget,
		Logger:      log,
		OnEvict: func(n int) {
			metrics.RecordEviction(metrics.QueueDurable, n)
		},
		OnStoreError: func(op string) {
			metrics.StoreErrors.WithLabelValues(op).Inc()
		},
	})
}

// Submit formats a log call and ships it. When the first argument is a
// string and more follow, it is a printf-style template.
func (p *Pipeline) Submit(level, logger string, args ...any) {
	p.SubmitEntry(p.formatter.Format(level, logger, args...))
}

// Receive ships a line emitted by the host. It implements logging.Sink.
func (p *Pipeline) Receive(text, level, logger string) {
	p.SubmitEntry(p.formatter.FormatText(level, logger, text))
}

// SubmitEntry queues an already formatted entry and starts a send cycle.
// It never waits for delivery.
func (p *Pipeline) SubmitEntry(entry string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	metrics.EntriesSubmitted.Inc()
	p.receiver.Push(entry)
	p.observe()
	p.send()
}

// Attach installs the pipeline as host's sink. The sink that was installed
// before is restored by Detach. After a Detach, delivery resumes once any
// call left outstanding by the Detach has returned.
func (p *Pipeline) Attach(host Host) error {
	if host == nil {
		return ErrNoHost
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attached {
		return ErrAlreadyAttached
	}

	p.host = host
	p.previous = host.Sink()
	p.attached = true
	p.stopped = false
	host.SetSink(p)
	p.send()
	return nil
}

// Detach removes the pipeline from its host and stops delivery. A transport
// call in flight is left to finish but its outcome is ignored; the batch
// stays queued.
func (p *Pipeline) Detach() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.attached {
		return ErrNotAttached
	}
	if current, ok := p.host.Sink().(*Pipeline); !ok || current != p {
		return ErrSinkReplaced
	}

	p.host.SetSink(p.previous)
	p.host = nil
	p.previous = nil
	p.attached = false
	p.stopLocked()
	return nil
}

// Stop ends delivery without touching any host. Entries submitted after
// Stop are queued but not sent.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Pipeline) stopLocked() {
	p.generation++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.sending {
		p.abandoned = true
		p.unconfirmed = p.current
	}
	p.sending = false
	p.suspended = false
	p.stopped = true
	p.current = nil
	p.notify()
}

// Flush waits until every queued entry has been delivered, or ctx ends.
func (p *Pipeline) Flush(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.drained() {
			p.mu.Unlock()
			return nil
		}
		if p.stopped {
			p.mu.Unlock()
			return ErrStopped
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (p *Pipeline) drained() bool {
	if p.sending || p.abandoned || p.volatile.Size() > 0 || p.volatile.InFlightSize() > 0 {
		return false
	}
	return p.durable == nil || (p.durable.Size() == 0 && p.durable.InFlightSize() == 0)
}

// notify wakes Flush callers.
func (p *Pipeline) notify() {
	close(p.changed)
	p.changed = make(chan struct{})
}

// observe publishes queue gauges.
func (p *Pipeline) observe() {
	metrics.UpdateQueueDepth(metrics.QueueVolatile, p.volatile.Size()+p.volatile.InFlightSize())
	if evicted := p.volatile.Evicted(); evicted > p.volatileEvicted {
		metrics.RecordEviction(metrics.QueueVolatile, int(evicted-p.volatileEvicted))
		p.volatileEvicted = evicted
	}
	if p.durable != nil {
		metrics.UpdateQueueDepth(metrics.QueueDurable, p.durable.Size()+p.durable.InFlightSize())
	}
	metrics.UpdateBackoff(p.interval)
}

// State names for Stats.
const (
	StateIdle      = "idle"
	StateSending   = "sending"
	StateSuspended = "suspended"
	StateStopped   = "stopped"
)

// QueueStats describes one queue.
type QueueStats struct {
	Pending  int    `json:"pending"`
	InFlight int    `json:"in_flight"`
	Capacity int    `json:"capacity"`
	Evicted  uint64 `json:"evicted"`
}

// Stats is a snapshot of pipeline state.
type Stats struct {
	State    string        `json:"state"`
	Persist  Persist       `json:"persist"`
	Receiver string        `json:"receiver"`
	Sender   string        `json:"sender"`
	Interval time.Duration `json:"interval"`
	Attached bool          `json:"attached"`
	Volatile QueueStats    `json:"volatile"`
	Durable  *QueueStats   `json:"durable,omitempty"`
}

// Stats returns a snapshot of the pipeline.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		State:    p.state(),
		Persist:  p.opts.Persist,
		Receiver: p.kind(p.receiver),
		Sender:   p.kind(p.sender),
		Interval: p.interval,
		Attached: p.attached,
		Volatile: QueueStats{
			Pending:  p.volatile.Size(),
			InFlight: p.volatile.InFlightSize(),
			Capacity: p.volatile.Capacity(),
			Evicted:  p.volatile.Evicted(),
		},
	}
	if p.durable != nil {
		s.Durable = &QueueStats{
			Pending:  p.durable.Size(),
			InFlight: p.durable.InFlightSize(),
			Capacity: p.durable.Capacity(),
			Evicted:  p.durable.Evicted(),
		}
	}
	return s
}

func (p *Pipeline) state() string {
	switch {
	case p.stopped:
		return StateStopped
	case p.sending, p.abandoned:
		return StateSending
	case p.suspended:
		return StateSuspended
	}
	return StateIdle
}

func (p *Pipeline) kind(q queue.Queue) string {
	if q == queue.Queue(p.durable) && p.durable != nil {
		return metrics.QueueDurable
	}
	return metrics.QueueVolatile
}
