// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package transport

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/logship/internal/metrics"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	failing := Func(func(context.Context, *Message) error {
		calls.Add(1)
		return errors.New("connection refused")
	})

	b := NewBreaker(failing, BreakerConfig{
		Name:         "test-open",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Hour,
		MinRequests:  3,
		FailureRatio: 0.5,
	})

	for i := 0; i < 3; i++ {
		if err := b.Send(context.Background(), &Message{}); err == nil {
			t.Fatal("expected failure")
		}
	}
	if b.State() != "open" {
		t.Fatalf("State() = %q, want open", b.State())
	}

	err := b.Send(context.Background(), &Message{})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Send() error = %v, want ErrCircuitOpen", err)
	}
	if Reason(err) != metrics.ReasonBreaker {
		t.Errorf("Reason() = %q, want %q", Reason(err), metrics.ReasonBreaker)
	}
	if calls.Load() != 3 {
		t.Errorf("underlying transport called %d times, want 3", calls.Load())
	}
}

func TestBreakerPassesSuccess(t *testing.T) {
	t.Parallel()

	var got *Message
	ok := Func(func(_ context.Context, msg *Message) error {
		got = msg
		return nil
	})
	b := NewBreaker(ok, DefaultBreakerConfig())

	msg := &Message{BatchID: "x"}
	if err := b.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got != msg {
		t.Error("expected message to be forwarded")
	}
	if b.State() != "closed" {
		t.Errorf("State() = %q, want closed", b.State())
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, metrics.ReasonTimeout},
		{&StatusError{StatusCode: 500, Status: "500 Internal Server Error"}, metrics.ReasonHTTP},
		{ErrCircuitOpen, metrics.ReasonBreaker},
		{errors.New("dial tcp: refused"), metrics.ReasonError},
	}
	for _, tt := range tests {
		if got := Reason(tt.err); got != tt.want {
			t.Errorf("Reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
