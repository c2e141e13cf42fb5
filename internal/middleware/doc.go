// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

/*
Package middleware provides HTTP middleware for the admin endpoint.

Key Components:

  - RequestID: UUID-based request tracking via X-Request-ID
  - PrometheusMetrics: request counts and latency per route
  - AccessLog: debug-level request logging with the request ID

Middleware Stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)          // Layer 1: Request tracking
	r.Use(middleware.PrometheusMetrics)  // Layer 2: Metrics
	r.Use(middleware.AccessLog)          // Layer 3: Logging

Routes are labelled by their chi pattern rather than the raw path, so
unknown paths collapse into a single "unmatched" series.
*/
package middleware
