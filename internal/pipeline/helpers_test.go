// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/tomtom215/logship/internal/logging"
	"github.com/tomtom215/logship/internal/queue"
	"github.com/tomtom215/logship/internal/transport"
)

var errRefused = errors.New("connection refused")

// call is one transport invocation awaiting a response from the test.
type call struct {
	ctx    context.Context
	msg    *transport.Message
	result chan error
}

func (c *call) respond(err error) { c.result <- err }

func (c *call) body() string { return string(c.msg.Body) }

// fakeTransport hands every call to the test.
type fakeTransport struct {
	calls chan *call
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{calls: make(chan *call, 16)}
}

func (f *fakeTransport) Send(ctx context.Context, msg *transport.Message) error {
	c := &call{ctx: ctx, msg: msg, result: make(chan error, 1)}
	f.calls <- c
	select {
	case err := <-c.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeTransport) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a transport call")
		return nil
	}
}

func (f *fakeTransport) expectNone(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected transport call with body %q", c.body())
	case <-time.After(20 * time.Millisecond):
	}
}

func newTestPipeline(t *testing.T, tr transport.Transport, kv queue.KV, opts Options) (*Pipeline, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	opts.Clock = mock
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	p, err := New(tr, kv, opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(p.Stop)
	return p, mock
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitForState(t *testing.T, p *Pipeline, state string) {
	t.Helper()
	waitFor(t, "state "+state, func() bool { return p.Stats().State == state })
}

// fakeHost is a Host with a plain sink slot.
type fakeHost struct {
	mu   sync.Mutex
	sink logging.Sink
}

func (h *fakeHost) Sink() logging.Sink {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sink
}

func (h *fakeHost) SetSink(s logging.Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sink = s
}

type otherSink struct{}

func (otherSink) Receive(string, string, string) {}

func noJitter() BackoffConfig { return BackoffConfig{NoJitter: true} }
