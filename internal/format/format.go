// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

// Package format renders log calls into pipeline entries.
//
// A call is a level, a logger name and a list of arguments. When the first
// argument is a string and more arguments follow, it is a template with the
// verbs %s (string), %d (number), %j (JSON) and %o (type name plus JSON);
// %% is a literal percent sign. Arguments left over are appended separated by
// spaces.
//
// In JSON mode an entry is a serialized Record. In plain mode it is the
// message, followed by a newline and the stack trace when one was captured.
package format

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// TimestampLayout is RFC 3339 with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DefaultTraceLevels are the levels that capture a stack trace by default.
var DefaultTraceLevels = []string{"trace", "warn", "error"}

// Record is the structured form of an entry.
type Record struct {
	Message    string `json:"message"`
	Level      string `json:"level"`
	Logger     string `json:"logger"`
	Timestamp  string `json:"timestamp"`
	Stacktrace string `json:"stacktrace"`
}

// Options configures a Formatter.
type Options struct {
	// JSON selects structured records instead of plain text.
	JSON bool

	// TraceLevels lists the levels that capture a stack trace.
	// nil selects DefaultTraceLevels; an empty non-nil slice disables traces.
	TraceLevels []string

	// Depth is the number of extra caller frames to drop from stack traces.
	Depth int

	// Timestamp produces the record timestamp. Default: UTC now in
	// TimestampLayout.
	Timestamp func() string
}

// Formatter turns log calls into entries.
type Formatter struct {
	json      bool
	trace     map[string]bool
	depth     int
	timestamp func() string
}

// New returns a Formatter for opts.
func New(opts Options) *Formatter {
	levels := opts.TraceLevels
	if levels == nil {
		levels = DefaultTraceLevels
	}
	trace := make(map[string]bool, len(levels))
	for _, l := range levels {
		trace[strings.ToLower(l)] = true
	}
	ts := opts.Timestamp
	if ts == nil {
		ts = func() string { return time.Now().UTC().Format(TimestampLayout) }
	}
	return &Formatter{json: opts.JSON, trace: trace, depth: opts.Depth, timestamp: ts}
}

// JSON reports whether entries are serialized records.
func (f *Formatter) JSON() bool { return f.json }

// Format renders one log call. The stack trace, when captured, starts at
// the caller of Format minus Depth frames.
func (f *Formatter) Format(level, logger string, args ...any) string {
	rec := Record{
		Message:   Message(args...),
		Level:     level,
		Logger:    logger,
		Timestamp: f.timestamp(),
	}
	if f.trace[strings.ToLower(level)] {
		rec.Stacktrace = stacktrace(f.depth)
	}
	return f.Render(rec)
}

// FormatText renders a line that is already a finished message.
func (f *Formatter) FormatText(level, logger, text string) string {
	return f.Render(Record{
		Message:   text,
		Level:     level,
		Logger:    logger,
		Timestamp: f.timestamp(),
	})
}

// Render serializes rec for the configured mode.
func (f *Formatter) Render(rec Record) string {
	if f.json {
		data, err := json.Marshal(rec)
		if err != nil {
			// Record holds only strings; this is unreachable in practice.
			return rec.Message
		}
		return string(data)
	}
	if rec.Stacktrace == "" {
		return rec.Message
	}
	return rec.Message + "\n" + rec.Stacktrace
}
