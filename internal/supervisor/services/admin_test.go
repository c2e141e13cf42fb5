// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/logship/internal/metrics"
	"github.com/tomtom215/logship/internal/pipeline"
)

type staticStats pipeline.Stats

func (s staticStats) Stats() pipeline.Stats { return pipeline.Stats(s) }

type staticUsage int64

func (u staticUsage) Used() int64 { return int64(u) }

func TestAdminHealthz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state      string
		wantStatus int
		wantBody   string
	}{
		{pipeline.StateIdle, http.StatusOK, `"status":"ok"`},
		{pipeline.StateSuspended, http.StatusOK, `"state":"suspended"`},
		{pipeline.StateStopped, http.StatusServiceUnavailable, `"status":"stopped"`},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			t.Parallel()
			router := NewAdminRouter(staticStats{State: tt.state}, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestAdminStats(t *testing.T) {
	t.Parallel()

	stats := staticStats{
		State:    pipeline.StateSending,
		Persist:  pipeline.PersistDefault,
		Receiver: "durable",
		Volatile: pipeline.QueueStats{Pending: 2, Capacity: 50},
		Durable:  &pipeline.QueueStats{Pending: 7, InFlight: 3, Capacity: 50},
	}
	router := NewAdminRouter(stats, staticUsage(4096))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got adminStats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Pipeline.Receiver != "durable" || got.Pipeline.Durable == nil || got.Pipeline.Durable.InFlight != 3 {
		t.Errorf("pipeline = %+v", got.Pipeline)
	}
	if got.StoreBytes == nil || *got.StoreBytes != 4096 {
		t.Errorf("store_bytes = %v, want 4096", got.StoreBytes)
	}
}

func TestAdminStatsWithoutStore(t *testing.T) {
	t.Parallel()

	router := NewAdminRouter(staticStats{State: pipeline.StateIdle}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if strings.Contains(rec.Body.String(), "store_bytes") {
		t.Errorf("body = %s, want no store_bytes", rec.Body.String())
	}
}

func TestAdminMetrics(t *testing.T) {
	t.Parallel()

	metrics.EntriesSubmitted.Add(0)
	router := NewAdminRouter(staticStats{}, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "logship_entries_submitted_total") {
		t.Error("metrics output missing logship_entries_submitted_total")
	}
}

func TestAdminUnknownRoute(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewAdminRouter(staticStats{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stats", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /stats status = %d, want 405", rec.Code)
	}
}
