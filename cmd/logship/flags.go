// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/tomtom215/logship/internal/config"
)

// flags holds command line overrides. Only flags the user set are applied,
// so that unset flags never mask the config file or environment.
type flags struct {
	set *pflag.FlagSet

	configPath string
	url        string
	token      string
	transport  string
	persist    string
	json       bool
	files      []string
	noStdin    bool
	follow     bool
	adminAddr  string
	attach     bool
	logLevel   string
	version    bool
	help       bool
}

func newFlags() *flags {
	f := &flags{set: pflag.NewFlagSet("logship", pflag.ContinueOnError)}
	s := f.set
	s.StringVarP(&f.configPath, "config", "c", "", "path to the YAML config file (overrides "+config.ConfigPathEnvVar+")")
	s.StringVarP(&f.url, "url", "u", "", "collector URL for the http transport")
	s.StringVar(&f.token, "token", "", "bearer token sent with every batch")
	s.StringVar(&f.transport, "transport", "", "delivery mechanism: http or nats")
	s.StringVar(&f.persist, "persist", "", "durable storage policy: default, always or never")
	s.BoolVar(&f.json, "json", false, "ship entries as JSON records")
	s.StringSliceVarP(&f.files, "file", "f", nil, "read lines from this file (repeatable)")
	s.BoolVar(&f.noStdin, "no-stdin", false, "do not read standard input")
	s.BoolVar(&f.follow, "follow", false, "keep reading files as they grow")
	s.StringVar(&f.adminAddr, "admin-addr", "", "serve /metrics, /healthz and /stats on this address")
	s.BoolVar(&f.attach, "attach-logger", false, "also ship logship's own log lines")
	s.StringVar(&f.logLevel, "log-level", "", "log level for logship's own output")
	s.BoolVar(&f.version, "version", false, "print the version and exit")
	s.BoolVarP(&f.help, "help", "h", false, "show help")
	return f
}

func (f *flags) parse(args []string) error {
	return f.set.Parse(args)
}

// apply copies the flags that were set onto cfg.
func (f *flags) apply(cfg *config.Config) {
	changed := f.set.Changed
	if changed("url") {
		cfg.Shipper.URL = f.url
	}
	if changed("token") {
		cfg.Shipper.Token = f.token
	}
	if changed("transport") {
		cfg.Transport.Kind = f.transport
	}
	if changed("persist") {
		cfg.Shipper.Persist = f.persist
	}
	if changed("json") {
		cfg.Shipper.JSON = f.json
	}
	if changed("file") {
		cfg.Source.Files = f.files
	}
	if changed("no-stdin") {
		cfg.Source.Stdin = !f.noStdin
	}
	if changed("follow") {
		cfg.Source.Follow = f.follow
	}
	if changed("admin-addr") {
		cfg.Admin.Enabled = f.adminAddr != ""
		cfg.Admin.Addr = f.adminAddr
	}
	if changed("attach-logger") {
		cfg.Shipper.AttachLogger = f.attach
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
}

// exportConfigPath points config.Load at the --config file.
func (f *flags) exportConfigPath() error {
	if f.configPath == "" {
		return nil
	}
	return os.Setenv(config.ConfigPathEnvVar, f.configPath)
}

func (f *flags) printHelp(w io.Writer) {
	fmt.Fprintf(w, `logship ships log lines to a collector, buffering them in memory and on
disk while the collector is unreachable.

Usage:
  logship [flags]

Examples:
  # Ship a service's stdout
  my-service | logship --url https://logs.example.com/ingest

  # Follow files and expose metrics
  logship --no-stdin -f /var/log/app.log --follow --admin-addr 127.0.0.1:9464

Flags:
%s
Every flag has a config file and environment variable equivalent; see
the config package documentation.
`, f.set.FlagUsages())
}
