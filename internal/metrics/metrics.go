// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

// Package metrics holds the Prometheus instruments for the shipping pipeline,
// its transports and its durable store.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Queue label values.
const (
	QueueVolatile = "volatile"
	QueueDurable  = "durable"
)

// Failure reasons for BatchFailures.
const (
	ReasonHTTP    = "http"
	ReasonTimeout = "timeout"
	ReasonError   = "error"
	ReasonBreaker = "breaker"
)

var (
	// Pipeline Metrics
	EntriesSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logship_entries_submitted_total",
			Help: "Total number of entries pushed into the pipeline",
		},
	)

	EntriesEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_entries_evicted_total",
			Help: "Total number of entries dropped to keep a queue within capacity",
		},
		[]string{"queue"},
	)

	BatchesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logship_batches_sent_total",
			Help: "Total number of batches acknowledged by the collector",
		},
	)

	BatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_batch_failures_total",
			Help: "Total number of failed delivery attempts",
		},
		[]string{"reason"},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logship_batch_size_entries",
			Help:    "Number of entries per delivery attempt",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 to 2048
		},
	)

	SendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logship_send_duration_seconds",
			Help:    "Duration of transport calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logship_queue_depth",
			Help: "Entries held by a queue (pending plus in flight)",
		},
		[]string{"queue"},
	)

	BackoffInterval = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logship_backoff_interval_seconds",
			Help: "Current pause between delivery attempts",
		},
	)

	Promotions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logship_promotions_total",
			Help: "Times the receiver escalated from volatile to durable storage",
		},
	)

	Demotions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logship_demotions_total",
			Help: "Times the receiver reverted from durable to volatile storage",
		},
	)

	// Store Metrics
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_store_errors_total",
			Help: "Durable store operations that failed and were skipped",
		},
		[]string{"op"},
	)

	StoreGCRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logship_store_gc_runs_total",
			Help: "Total number of value log GC runs on the durable store",
		},
	)

	// Transport Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logship_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Source Metrics
	SourceLines = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_source_lines_total",
			Help: "Lines read by input sources",
		},
		[]string{"source"},
	)

	// Admin Endpoint Metrics
	AdminRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logship_admin_requests_total",
			Help: "Requests served by the admin endpoint",
		},
		[]string{"method", "route", "status"},
	)

	AdminRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logship_admin_request_duration_seconds",
			Help:    "Admin endpoint request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// RecordAdminRequest records one admin endpoint request.
func RecordAdminRequest(method, route, status string, duration time.Duration) {
	AdminRequests.WithLabelValues(method, route, status).Inc()
	AdminRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordSend records the outcome of one delivery attempt.
// reason is empty on success.
func RecordSend(entries int, duration time.Duration, reason string) {
	BatchSize.Observe(float64(entries))
	SendDuration.Observe(duration.Seconds())
	if reason == "" {
		BatchesSent.Inc()
		return
	}
	BatchFailures.WithLabelValues(reason).Inc()
}

// UpdateQueueDepth sets the depth gauge for a queue.
func UpdateQueueDepth(queue string, depth int) {
	QueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordEviction counts n entries dropped from a queue.
func RecordEviction(queue string, n int) {
	if n > 0 {
		EntriesEvicted.WithLabelValues(queue).Add(float64(n))
	}
}

// UpdateBackoff sets the current backoff interval gauge.
func UpdateBackoff(d time.Duration) {
	BackoffInterval.Set(d.Seconds())
}
