// Logship - Client-side log shipping pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logship

package services

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/logship/internal/logging"
	"github.com/tomtom215/logship/internal/middleware"
	"github.com/tomtom215/logship/internal/pipeline"
)

// StatsProvider is satisfied by *pipeline.Pipeline.
type StatsProvider interface {
	Stats() pipeline.Stats
}

// StoreUsage reports the bytes held by the durable store.
type StoreUsage interface {
	Used() int64
}

// adminStats is the /stats response body.
type adminStats struct {
	Pipeline   pipeline.Stats `json:"pipeline"`
	StoreBytes *int64         `json:"store_bytes,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
}

// NewAdminRouter serves the local admin endpoints:
//
//	GET /metrics  Prometheus exposition
//	GET /healthz  200 while the pipeline runs, 503 once stopped
//	GET /stats    pipeline and store snapshot
//
// store may be nil when the daemon runs without durable storage.
func NewAdminRouter(p StatsProvider, store StoreUsage) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.GetHead)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		state := p.Stats().State
		resp := healthResponse{Status: "ok", State: state}
		status := http.StatusOK
		if state == pipeline.StateStopped {
			resp.Status = "stopped"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		resp := adminStats{Pipeline: p.Stats()}
		if store != nil {
			used := store.Used()
			resp.StoreBytes = &used
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger := logging.Direct()
		logger.Error().Err(err).Msg("Failed to marshal admin response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger := logging.Direct()
		logger.Debug().Err(err).Msg("Failed to write admin response")
	}
}
