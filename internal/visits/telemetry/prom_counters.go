// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry exposes Prometheus metrics for visit tracking and pricing
// and an optional periodic log of the most viewed items.
//
// All Observe* functions are no-ops until Enable is called with Enabled=true,
// so the hot path pays only an atomic load when telemetry is off.
package telemetry

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Config controls the telemetry module.
//
//   - MetricsAddr, when non-empty, starts a dedicated HTTP server for /metrics.
//     Leave it empty if Handler is mounted on an existing server.
//   - LogInterval > 0 starts the top-items summary loop; TopN bounds its size.
type Config struct {
	Enabled     bool
	MetricsAddr string
	LogInterval time.Duration
	TopN        int
	Logger      logrus.FieldLogger
}

// Label values for the path and op labels.
const (
	PathGuest      = "guest"
	PathIdentified = "identified"

	OpRecord = "record"
	OpCount  = "count"
)

var (
	modEnabled atomic.Bool

	visitsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_visits_recorded_total",
		Help: "Visits successfully recorded, by storage path (guest or identified)",
	}, []string{"path"})
	visitErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_visit_errors_total",
		Help: "Failed or timed-out durable store round trips, by operation",
	}, []string{"op"})
	duplicateRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_duplicate_records_total",
		Help: "Lookups that found more than one durable record for one (identity, item) pair",
	})
	malformedGuestState = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_malformed_guest_state_total",
		Help: "Guest visit mappings that could not be decoded and were reset",
	})
	storeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_store_latency_seconds",
		Help:    "Durable store round-trip latency, by operation",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"op"})
	quotesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storefront_quotes_total",
		Help: "Adjusted price quotes served",
	})
	itemsTracked = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_items_tracked",
		Help: "Items currently tracked by the top-items aggregator",
	})
)

func init() {
	prometheus.MustRegister(visitsRecorded, visitErrors, duplicateRecords, malformedGuestState, storeLatency, quotesTotal, itemsTracked)
}

// Enable configures the module. Safe to call multiple times; later calls replace the config.
func Enable(cfg Config) {
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	modEnabled.Store(cfg.Enabled)
	startOrUpdateExporter(cfg)
	if cfg.Enabled && cfg.MetricsAddr != "" {
		startMetricsEndpoint(cfg.MetricsAddr, cfg.Logger)
	}
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveVisit counts a recorded visit of itemID on the given path.
func ObserveVisit(path, itemID string) {
	if !modEnabled.Load() {
		return
	}
	visitsRecorded.WithLabelValues(path).Inc()
	exporterRecordView(itemID)
}

// ObserveError counts a failed durable store operation.
func ObserveError(op string) {
	if !modEnabled.Load() {
		return
	}
	visitErrors.WithLabelValues(op).Inc()
}

// ObserveStoreLatency records the duration of a durable store operation.
func ObserveStoreLatency(op string, d time.Duration) {
	if !modEnabled.Load() {
		return
	}
	storeLatency.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveDuplicate counts a duplicate-record anomaly.
func ObserveDuplicate() {
	if !modEnabled.Load() {
		return
	}
	duplicateRecords.Inc()
}

// ObserveMalformedGuestState counts a reset guest mapping.
func ObserveMalformedGuestState() {
	if !modEnabled.Load() {
		return
	}
	malformedGuestState.Inc()
}

// ObserveQuote counts a served quote.
func ObserveQuote() {
	if !modEnabled.Load() {
		return
	}
	quotesTotal.Inc()
}

// startMetricsEndpoint exposes /metrics on addr in a background goroutine.
func startMetricsEndpoint(addr string, log logrus.FieldLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).WithField("addr", addr).Warn("metrics endpoint stopped")
		}
	}()
}
