// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

/*
Package supervisor provides process supervision for the logship daemon using
suture v4.

# Tree Layout

	logship (root)
	├── storage-layer
	│   └── store-gc            BadgerDB value log GC
	├── ingest-layer
	│   ├── source:stdin        lines from standard input
	│   └── source:<file>...    lines from configured files
	└── admin-layer
	    └── admin-server        /metrics, /healthz, /stats

The pipeline itself is not a supervised service. It is owned by main, which
flushes and stops it after the tree has shut down so that no source is still
submitting while the final batch goes out.

# Restart Policy

Each layer restarts its failed children with suture's backoff. A source
that finishes (EOF on a file that is not followed) returns
suture.ErrDoNotRestart and is removed from its layer.

# Logging

Supervisor events are logged through sutureslog, bridged to zerolog with
logging.NewSlogLogger.
*/
package supervisor
