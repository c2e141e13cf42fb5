// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

// getHistogramCount extracts the sample count from a Prometheus histogram
func getHistogramCount(t *testing.T, h prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := h.(prometheus.Metric)
	if !ok {
		t.Fatalf("%T is not a prometheus.Metric", h)
	}
	var m io_prometheus_client.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestRecordSend(t *testing.T) {
	sentBefore := testutil.ToFloat64(BatchesSent)
	timeoutBefore := testutil.ToFloat64(BatchFailures.WithLabelValues(ReasonTimeout))

	RecordSend(3, 10*time.Millisecond, "")
	RecordSend(3, time.Second, ReasonTimeout)

	if got := testutil.ToFloat64(BatchesSent) - sentBefore; got != 1 {
		t.Errorf("BatchesSent delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(BatchFailures.WithLabelValues(ReasonTimeout)) - timeoutBefore; got != 1 {
		t.Errorf("timeout failures delta = %v, want 1", got)
	}
}

func TestRecordEviction(t *testing.T) {
	before := testutil.ToFloat64(EntriesEvicted.WithLabelValues(QueueVolatile))

	RecordEviction(QueueVolatile, 0)
	RecordEviction(QueueVolatile, 2)

	if got := testutil.ToFloat64(EntriesEvicted.WithLabelValues(QueueVolatile)) - before; got != 2 {
		t.Errorf("evicted delta = %v, want 2", got)
	}
}

func TestGauges(t *testing.T) {
	UpdateQueueDepth(QueueDurable, 7)
	if got := testutil.ToFloat64(QueueDepth.WithLabelValues(QueueDurable)); got != 7 {
		t.Errorf("queue depth = %v, want 7", got)
	}

	UpdateBackoff(1500 * time.Millisecond)
	if got := testutil.ToFloat64(BackoffInterval); got != 1.5 {
		t.Errorf("backoff = %v, want 1.5", got)
	}
}

func TestRecordSendObservesHistograms(t *testing.T) {
	sizeBefore := getHistogramCount(t, BatchSize)
	durationBefore := getHistogramCount(t, SendDuration)

	RecordSend(7, 20*time.Millisecond, ReasonError)

	if got := getHistogramCount(t, BatchSize) - sizeBefore; got != 1 {
		t.Errorf("BatchSize samples delta = %d, want 1", got)
	}
	if got := getHistogramCount(t, SendDuration) - durationBefore; got != 1 {
		t.Errorf("SendDuration samples delta = %d, want 1", got)
	}
}

func TestRecordAdminRequest(t *testing.T) {
	counter := AdminRequests.WithLabelValues("GET", "/stats", "200")
	before := testutil.ToFloat64(counter)
	latencyBefore := getHistogramCount(t, AdminRequestDuration.WithLabelValues("/stats"))

	RecordAdminRequest("GET", "/stats", "200", 3*time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("AdminRequests delta = %v, want 1", got)
	}
	if got := getHistogramCount(t, AdminRequestDuration.WithLabelValues("/stats")) - latencyBefore; got != 1 {
		t.Errorf("AdminRequestDuration samples delta = %d, want 1", got)
	}
}
