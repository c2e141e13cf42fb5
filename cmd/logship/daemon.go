// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/logship/internal/config"
	"github.com/tomtom215/logship/internal/kvstore"
	"github.com/tomtom215/logship/internal/logging"
	"github.com/tomtom215/logship/internal/pipeline"
	"github.com/tomtom215/logship/internal/queue"
	"github.com/tomtom215/logship/internal/source"
	"github.com/tomtom215/logship/internal/supervisor"
	"github.com/tomtom215/logship/internal/supervisor/services"
	"github.com/tomtom215/logship/internal/transport"
)

// finiteSource is a source that can reach the end of its input.
type finiteSource interface {
	Done() <-chan struct{}
}

type daemon struct {
	cfg   *config.Config
	stdin io.Reader

	store    *kvstore.Badger
	closers  []io.Closer
	pipeline *pipeline.Pipeline
	sources  []finiteSource
}

func newDaemon(cfg *config.Config) *daemon {
	return &daemon{cfg: cfg, stdin: os.Stdin}
}

func (d *daemon) run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer d.close()
	if err := d.build(ctx); err != nil {
		return err
	}

	if d.cfg.Shipper.AttachLogger {
		if err := d.pipeline.Attach(logging.Remote); err != nil {
			return fmt.Errorf("attach logger: %w", err)
		}
	}

	tree, err := d.tree()
	if err != nil {
		return err
	}
	treeCtx, cancelTree := context.WithCancel(ctx)
	defer cancelTree()
	treeErr := tree.ServeBackground(treeCtx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	case <-d.sourcesDone():
		logging.Info().Msg("All sources reached end of input")
	case err := <-treeErr:
		logging.Error().Err(err).Msg("Supervisor tree stopped unexpectedly")
	}

	cancelTree()
	select {
	case <-treeErr:
	case <-time.After(15 * time.Second):
		if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
			logging.Warn().Int("services", len(report)).Msg("Services did not stop in time")
		}
	}

	d.shutdownPipeline()
	return nil
}

// build opens the store, the transport and the pipeline.
func (d *daemon) build(ctx context.Context) error {
	cfg := d.cfg

	// A store that cannot be opened is not fatal: the pipeline runs with
	// memory only.
	var kv queue.KV
	if cfg.Storage.Enabled {
		store, err := kvstore.Open(cfg.KVStoreConfig())
		if err != nil {
			logging.Warn().Err(err).Str("path", cfg.Storage.Path).Msg("Durable store unavailable, shipping from memory only")
		} else {
			d.store = store
			kv = store
		}
	}

	tr, err := d.transport(ctx)
	if err != nil {
		return err
	}

	opts := cfg.PipelineOptions()
	direct := logging.Direct()
	opts.Logger = &direct
	p, err := pipeline.New(tr, kv, opts)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	d.pipeline = p

	stats := p.Stats()
	logging.Info().
		Str("persist", string(stats.Persist)).
		Int("capacity", stats.Volatile.Capacity).
		Bool("durable", stats.Durable != nil).
		Msg("Pipeline ready")
	return nil
}

// transport builds the configured transport, wrapped in a circuit breaker
// when enabled.
func (d *daemon) transport(ctx context.Context) (transport.Transport, error) {
	cfg := d.cfg

	var tr transport.Transport
	switch cfg.Transport.Kind {
	case config.TransportNATS:
		nt, err := transport.NewNATS(ctx, cfg.NATSConfig())
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		d.closers = append(d.closers, nt)
		tr = nt
		logging.Info().Str("url", cfg.Transport.NATS.URL).Str("subject", cfg.Transport.NATS.Subject).Msg("NATS transport connected")
	default:
		ht, err := transport.NewHTTP(cfg.HTTPConfig())
		if err != nil {
			return nil, fmt.Errorf("create http transport: %w", err)
		}
		tr = ht
		logging.Info().Str("url", cfg.Shipper.URL).Bool("gzip", cfg.Transport.Gzip).Msg("HTTP transport ready")
	}

	if cfg.Transport.Breaker.Enabled {
		tr = transport.NewBreaker(tr, cfg.BreakerConfig())
	}
	return tr, nil
}

// tree assembles the supervisor tree: store GC, sources and the admin
// endpoint.
func (d *daemon) tree() (*supervisor.SupervisorTree, error) {
	cfg := d.cfg

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	var usage services.StoreUsage
	if d.store != nil {
		usage = d.store
		if !cfg.Storage.InMemory {
			tree.AddStorageService(services.NewStoreGCService(d.store))
		}
	}

	if cfg.Source.Stdin {
		s := source.NewStream("stdin", d.stdin, d.pipeline, cfg.Source.Level)
		tree.AddIngestService(s)
		d.sources = append(d.sources, s)
	}
	for _, path := range cfg.Source.Files {
		f := source.NewFile(path, d.pipeline, source.FileOptions{
			Level:        cfg.Source.Level,
			Follow:       cfg.Source.Follow,
			PollInterval: cfg.Source.PollInterval,
		})
		tree.AddIngestService(f)
		if !cfg.Source.Follow {
			d.sources = append(d.sources, f)
		}
	}

	if cfg.Admin.Enabled {
		server := &http.Server{
			Addr:              cfg.Admin.Addr,
			Handler:           services.NewAdminRouter(d.pipeline, usage),
			ReadHeaderTimeout: 5 * time.Second,
		}
		tree.AddAdminService(services.NewHTTPServerService("admin-server", server, 5*time.Second))
		logging.Info().Str("addr", cfg.Admin.Addr).Msg("Admin endpoint enabled")
	}

	return tree, nil
}

// sourcesDone is closed once every finite source is done. It never closes
// when a followed file is configured or there are no sources at all.
func (d *daemon) sourcesDone() <-chan struct{} {
	done := make(chan struct{})
	if len(d.sources) == 0 || (d.cfg.Source.Follow && len(d.cfg.Source.Files) > 0) {
		return done
	}
	go func() {
		for _, s := range d.sources {
			<-s.Done()
		}
		close(done)
	}()
	return done
}

// shutdownPipeline gives queued entries one last chance, then stops.
// Detaching from the logger also stops the pipeline, so it comes last.
func (d *daemon) shutdownPipeline() {
	p := d.pipeline

	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Shipper.FlushTimeout)
	defer cancel()
	if err := p.Flush(ctx); err != nil && !errors.Is(err, pipeline.ErrStopped) {
		stats := p.Stats()
		pending := stats.Volatile.Pending + stats.Volatile.InFlight
		if stats.Durable != nil {
			pending += stats.Durable.Pending + stats.Durable.InFlight
		}
		logging.Warn().Err(err).Int("pending", pending).Msg("Shutting down with undelivered entries")
	}

	if d.cfg.Shipper.AttachLogger {
		if err := p.Detach(); err != nil && !errors.Is(err, pipeline.ErrNotAttached) {
			logging.Warn().Err(err).Msg("Failed to detach from logger")
		}
	}
	p.Stop()
}

// close releases the transport and the store.
func (d *daemon) close() {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing transport")
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing durable store")
		}
	}
	logging.Info().Msg("logship stopped")
}
