// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package logging

import (
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Sink receives every line the global logger emits while it is installed.
// Receive must not block and must not log through the global logger.
type Sink interface {
	Receive(text, level, logger string)
}

type sinkSlot struct {
	sink Sink
}

var current atomic.Pointer[sinkSlot]

// Remote is the host handle for the global logger's sink slot.
// It satisfies pipeline.Host.
var Remote RemoteHost

// RemoteHost exposes the sink slot of the global logger.
type RemoteHost struct{}

// Sink returns the installed sink, or nil.
func (RemoteHost) Sink() Sink {
	return CurrentSink()
}

// SetSink installs s; nil removes the current sink.
func (RemoteHost) SetSink(s Sink) {
	SetSink(s)
}

// CurrentSink returns the installed sink, or nil.
func CurrentSink() Sink {
	slot := current.Load()
	if slot == nil {
		return nil
	}
	return slot.sink
}

// SetSink installs s as the remote sink of the global logger.
// Passing nil removes it.
func SetSink(s Sink) {
	if s == nil {
		current.Store(nil)
		return
	}
	current.Store(&sinkSlot{sink: s})
}

// sinkWriter forwards formatted lines to the installed sink.
type sinkWriter struct{}

func (w sinkWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

func (sinkWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s := CurrentSink()
	if s == nil {
		return len(p), nil
	}
	s.Receive(strings.TrimRight(string(p), "\n"), level.String(), "")
	return len(p), nil
}
