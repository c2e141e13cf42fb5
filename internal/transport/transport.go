// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

// Package transport delivers rendered batches to a collector.
//
// A Transport returns nil once the collector has accepted a batch. Any error
// means the batch must be retried; the caller does not distinguish a
// rejected batch from an unreachable collector except for reporting.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/logship/internal/metrics"
)

// Content types for rendered batches.
const (
	ContentTypeJSON  = "application/json"
	ContentTypePlain = "text/plain"
)

// Message is one rendered batch.
type Message struct {
	// Body is the wire payload.
	Body []byte

	// ContentType is ContentTypeJSON or ContentTypePlain.
	ContentType string

	// Token, when set, is sent as a bearer credential.
	Token string

	// BatchID identifies the batch. A batch resent with an identical body
	// after a failed or abandoned attempt keeps its ID so collectors can
	// deduplicate; a batch that grew in the meantime gets a new one.
	BatchID string

	// Count is the number of entries in Body.
	Count int
}

// Transport delivers a message, honoring ctx cancellation.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, msg *Message) error

// Send calls f.
func (f Func) Send(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("collector responded %s", e.Status)
}

// ErrCircuitOpen is wrapped by Breaker when it rejects a send without
// calling the underlying transport.
var ErrCircuitOpen = errors.New("transport: circuit open")

// Reason classifies err into a failure reason label for metrics.
func Reason(err error) string {
	var statusErr *StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.ReasonTimeout
	case errors.Is(err, ErrCircuitOpen):
		return metrics.ReasonBreaker
	case errors.As(err, &statusErr):
		return metrics.ReasonHTTP
	}
	return metrics.ReasonError
}
