// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package pipeline

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Persist selects how the durable queue is used.
type Persist string

const (
	// PersistDefault receives into memory while delivery succeeds, and
	// promotes to durable storage on the first failure.
	PersistDefault Persist = "default"

	// PersistAlways receives into durable storage only.
	PersistAlways Persist = "always"

	// PersistNever disables durable storage.
	PersistNever Persist = "never"
)

// Capacity defaults, in entries.
const (
	DefaultVolatileCapacity = 500
	DefaultDurableCapacity  = 50
)

// DefaultInterval is the base pause between sends.
const DefaultInterval = time.Second

// Options configures a Pipeline. The zero value is usable.
type Options struct {
	// Token is sent as a bearer credential when set.
	Token string

	// Timeout bounds each transport call. Zero means no timeout.
	Timeout time.Duration

	// Interval is the base pause between sends. Default: 1s
	Interval time.Duration

	// IntervalSet marks Interval as explicit, so that zero sends back to
	// back instead of selecting the default.
	IntervalSet bool

	// Backoff computes the next interval after a failure. Nil uses
	// BackoffConfig.
	Backoff BackoffFunc

	// BackoffConfig parameterizes the default backoff.
	BackoffConfig BackoffConfig

	// Persist selects the durable storage policy. Default: PersistDefault
	Persist Persist

	// Capacity bounds each queue in entries. Zero selects
	// DefaultVolatileCapacity under PersistNever, DefaultDurableCapacity
	// otherwise.
	Capacity int

	// JSON renders entries as records and batches as {"messages":[...]}.
	JSON bool

	// TraceLevels lists the levels Submit captures a stack trace for.
	// Nil selects trace, warn and error.
	TraceLevels []string

	// Depth drops extra caller frames from stack traces.
	Depth int

	// Timestamp produces record timestamps.
	Timestamp func() string

	// KeyPrefix namespaces the durable store keys. Default: logship
	KeyPrefix string

	// EntryBudget is the serialized byte allowance per entry of durable
	// capacity. Default: 512
	EntryBudget int

	// Clock drives backoff timers and timeouts. Default: wall clock
	Clock clock.Clock

	// Logger receives pipeline diagnostics. It must not be connected to
	// the pipeline's own host. Default: logging.Direct()
	Logger *zerolog.Logger
}

func (o *Options) validate() error {
	switch o.Persist {
	case "", PersistDefault, PersistAlways, PersistNever:
	default:
		return fmt.Errorf("%w: persist %q", ErrInvalidOptions, o.Persist)
	}
	if o.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative", ErrInvalidOptions)
	}
	if o.Timeout < 0 || o.Interval < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidOptions)
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.Persist == "" {
		o.Persist = PersistDefault
	}
	if o.Interval == 0 && !o.IntervalSet {
		o.Interval = DefaultInterval
	}
	if o.Capacity == 0 {
		o.Capacity = defaultCapacity(o.Persist)
	}
	if o.Backoff == nil {
		o.Backoff = o.BackoffConfig.Func()
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
}

func defaultCapacity(p Persist) int {
	if p == PersistNever {
		return DefaultVolatileCapacity
	}
	return DefaultDurableCapacity
}
