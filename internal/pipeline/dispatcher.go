// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/logship/internal/metrics"
	"github.com/tomtom215/logship/internal/queue"
	"github.com/tomtom215/logship/internal/transport"
)

// send runs one send cycle. It is a no-op while a batch is in flight,
// while a call abandoned by Stop is still outstanding, while paused, or
// when nothing is queued. Must be called with mu held.
func (p *Pipeline) send() {
	if p.stopped || p.suspended || p.sending || p.abandoned {
		return
	}

	if p.sender.InFlightSize() == 0 {
		switch {
		case p.durable != nil && p.durable.Size() > 0:
			p.sender = p.durable
		case p.volatile.Size() > 0:
			p.sender = p.volatile
		default:
			return
		}
	}

	p.current = p.render(p.sender.FormBatch())
	p.sending = true
	go p.deliver(p.generation, p.current)
}

// render frames a batch for the wire. A batch whose payload is identical to
// the last unconfirmed one keeps that batch's ID.
func (p *Pipeline) render(batch queue.Batch) *transport.Message {
	msg := &transport.Message{
		Token: p.opts.Token,
		Count: len(batch),
	}
	if p.opts.JSON {
		msg.ContentType = transport.ContentTypeJSON
		msg.Body = []byte(`{"messages":[` + strings.Join(batch, ",") + `]}`)
	} else {
		msg.ContentType = transport.ContentTypePlain
		msg.Body = []byte(strings.Join(batch, "\n"))
	}

	if p.unconfirmed != nil && bytes.Equal(p.unconfirmed.Body, msg.Body) {
		msg.BatchID = p.unconfirmed.BatchID
	} else {
		msg.BatchID = uuid.NewString()
	}
	p.unconfirmed = nil
	return msg
}

// deliver performs the transport call outside the lock. When the timeout
// elapses first, the call is abandoned and counted as a failure.
func (p *Pipeline) deliver(generation uint64, msg *transport.Message) {
	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if p.opts.Timeout > 0 {
		ctx, cancel = p.clock.WithTimeout(context.Background(), p.opts.Timeout)
	}
	defer cancel()

	start := p.clock.Now()
	result := make(chan error, 1)
	go func() {
		result <- p.transport.Send(ctx, msg)
	}()

	var err error
	select {
	case err = <-result:
	case <-ctx.Done():
		err = fmt.Errorf("send abandoned: %w", ctx.Err())
	}
	p.complete(generation, msg, err, p.clock.Since(start))
}

// complete applies a transport outcome.
func (p *Pipeline) complete(generation uint64, msg *transport.Message, err error, took time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if generation != p.generation {
		// The batch was neither confirmed nor failed and is still formed.
		// With the call settled, a restarted pipeline may resend it.
		p.log.Debug().Str("batch_id", msg.BatchID).Err(err).Msg("Discarding outcome of a send from before stop")
		p.abandoned = false
		p.send()
		p.notify()
		return
	}

	p.sending = false
	p.current = nil

	var pause time.Duration
	if err == nil {
		metrics.RecordSend(msg.Count, took, "")
		p.sender.Confirm()
		p.unconfirmed = nil
		p.interval = p.opts.Interval
		pause = p.interval
		if p.opts.Persist != PersistAlways && p.receiver != queue.Queue(p.volatile) {
			p.receiver = p.volatile
			metrics.Demotions.Inc()
			p.log.Info().Msg("Delivery recovered, receiving in memory")
		}
		p.log.Debug().Str("batch_id", msg.BatchID).Int("entries", msg.Count).Dur("took", took).Msg("Batch delivered")
	} else {
		reason := transport.Reason(err)
		metrics.RecordSend(msg.Count, took, reason)
		pause = p.interval
		p.interval = p.opts.Backoff(p.interval)
		p.sender.Fail()
		p.unconfirmed = msg
		p.log.Warn().
			Err(err).
			Str("reason", reason).
			Str("batch_id", msg.BatchID).
			Int("entries", msg.Count).
			Dur("retry_in", pause).
			Msg("Batch delivery failed")

		if p.opts.Persist != PersistNever && p.durable != nil && p.receiver != queue.Queue(p.durable) {
			p.durable.Unshift(p.volatile.DrainAll())
			p.receiver = p.durable
			metrics.Promotions.Inc()
			p.log.Info().Int("entries", p.durable.Size()).Msg("Delivery failing, receiving into durable storage")
		}
	}

	p.observe()
	p.pause(pause)
	p.notify()
}

// pause suspends sending for d, then runs a send cycle. A zero pause runs
// the cycle immediately.
func (p *Pipeline) pause(d time.Duration) {
	if d <= 0 {
		p.send()
		return
	}

	p.suspended = true
	generation := p.generation
	p.timer = p.clock.AfterFunc(d, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if generation != p.generation {
			return
		}
		p.timer = nil
		p.suspended = false
		p.send()
		p.notify()
	})
}
