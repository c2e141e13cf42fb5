// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSConfig configures the JetStream transport.
type NATSConfig struct {
	// URL of the NATS server.
	URL string

	// Subject batches are published to.
	Subject string

	// Stream, when set, is created or updated to capture Subject.
	Stream string

	// DuplicateWindow is the stream's deduplication window for batch IDs.
	// Default: 2m
	DuplicateWindow time.Duration

	// Name identifies this client to the server.
	Name string
}

// NATS publishes batches to a JetStream subject. The publish
// acknowledgement is the delivery confirmation. The batch ID is the
// message ID, so an unchanged batch resent within DuplicateWindow is
// deduplicated by the stream.
type NATS struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATS connects to the server and prepares the stream.
func NewNATS(ctx context.Context, cfg NATSConfig) (*NATS, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("nats transport: subject is required")
	}
	name := cfg.Name
	if name == "" {
		name = "logship"
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	if cfg.Stream != "" {
		window := cfg.DuplicateWindow
		if window <= 0 {
			window = 2 * time.Minute
		}
		_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:       cfg.Stream,
			Subjects:   []string{cfg.Subject},
			Retention:  jetstream.LimitsPolicy,
			Storage:    jetstream.FileStorage,
			Duplicates: window,
			Discard:    jetstream.DiscardOld,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
		}
	}

	return &NATS{nc: nc, js: js, subject: cfg.Subject}, nil
}

// Send publishes msg and waits for the stream acknowledgement.
func (t *NATS) Send(ctx context.Context, msg *Message) error {
	m := nats.NewMsg(t.subject)
	m.Data = msg.Body
	m.Header.Set("Content-Type", msg.ContentType)
	if msg.Token != "" {
		m.Header.Set("Authorization", "Bearer "+msg.Token)
	}

	var opts []jetstream.PublishOpt
	if msg.BatchID != "" {
		opts = append(opts, jetstream.WithMsgID(msg.BatchID))
	}
	if _, err := t.js.PublishMsg(ctx, m, opts...); err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}
	return nil
}

// Close drains the connection.
func (t *NATS) Close() error {
	return t.nc.Drain()
}
