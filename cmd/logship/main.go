// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

// Package main is the logship daemon.
//
// logship reads log lines from stdin and files and ships them in batches to
// a collector over HTTP or NATS JetStream. Lines are queued in memory while
// delivery succeeds; when it fails, the queue moves into a BadgerDB store so
// that a backlog survives restarts.
//
// # Startup
//
//  1. Configuration: defaults, YAML file, environment, then flags
//  2. Durable store: BadgerDB (optional; failure degrades to memory only)
//  3. Transport: http or nats, wrapped in a circuit breaker
//  4. Pipeline: queues and the send loop
//  5. Supervisor tree: sources, store GC, admin endpoint
//
// # Signal Handling
//
// On SIGINT or SIGTERM, or once every finite source has reached EOF:
//   - The supervisor tree stops, so no more lines arrive
//   - The pipeline gets shipper.flush_timeout to deliver what is queued
//   - The pipeline stops; undelivered durable entries stay on disk
//   - The transport and store are closed
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/tomtom215/logship/internal/config"
	"github.com/tomtom215/logship/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "logship: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	f := newFlags()
	if err := f.parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			f.printHelp(os.Stderr)
			return nil
		}
		return err
	}
	if f.help {
		f.printHelp(os.Stderr)
		return nil
	}
	if f.version {
		fmt.Println("logship", version)
		return nil
	}
	if rest := f.set.Args(); len(rest) > 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	if err := f.exportConfigPath(); err != nil {
		return err
	}
	cfg, err := config.Load(f.apply)
	if err != nil {
		return err
	}

	logging.Init(cfg.LoggingConfig())
	logging.Info().
		Str("version", version).
		Str("transport", cfg.Transport.Kind).
		Str("persist", cfg.Shipper.Persist).
		Bool("storage", cfg.Storage.Enabled).
		Msg("Starting logship")

	return newDaemon(cfg).run()
}
