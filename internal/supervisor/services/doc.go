// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

// Package services adapts daemon components to suture.Service.
//
// Each wrapper turns a component lifecycle into Serve(ctx) error:
//   - HTTPServerService: ListenAndServe/Shutdown (the admin endpoint)
//   - StoreGCService: the BadgerDB GC loop
//
// Log sources implement suture.Service themselves (see internal/source).
// NewAdminRouter builds the chi handler served by the admin endpoint.
package services
