// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

// Package source reads log lines from stdin or files and hands them to the
// pipeline. Every source is a suture.Service; a source that reaches the end
// of its input returns suture.ErrDoNotRestart and closes its Done channel.
package source

import (
	"strings"
	"sync"

	"github.com/tomtom215/logship/internal/metrics"
)

// Sink receives one line at a time. Satisfied by *pipeline.Pipeline.
type Sink interface {
	Receive(text, level, logger string)
}

// base holds what every source shares: where lines go and how they are
// labelled.
type base struct {
	name  string
	sink  Sink
	level string

	done     chan struct{}
	doneOnce sync.Once
}

func (b *base) init(name string, sink Sink, level string) {
	if level == "" {
		level = "info"
	}
	b.name, b.sink, b.level = name, sink, level
	b.done = make(chan struct{})
}

// emit forwards one line without its terminator. Blank lines are dropped.
func (b *base) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	metrics.SourceLines.WithLabelValues(b.name).Inc()
	b.sink.Receive(line, b.level, b.name)
}

func (b *base) finish() {
	b.doneOnce.Do(func() { close(b.done) })
}

// Done is closed once the source has read all of its input.
func (b *base) Done() <-chan struct{} {
	return b.done
}

// String implements fmt.Stringer. Suture uses it in log messages.
func (b *base) String() string {
	return "source:" + b.name
}
