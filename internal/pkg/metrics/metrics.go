// Package metrics provides Prometheus metrics for the ingestion pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IngestMetrics collects and exposes ingestion-related Prometheus metrics.
type IngestMetrics struct {
	registry *prometheus.Registry

	TicksTotal       *prometheus.CounterVec
	RecordsTotal     *prometheus.CounterVec
	SnapshotsWritten prometheus.Counter
	FetchDuration    prometheus.Histogram
	TickDuration     prometheus.Histogram
	MatchesInFeed    prometheus.Gauge
}

// NewIngestMetrics creates the metrics collector with its own registry.
func NewIngestMetrics() *IngestMetrics {
	registry := prometheus.NewRegistry()

	m := &IngestMetrics{
		registry: registry,
		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livedash_ingest_ticks_total",
			Help: "Ingestion ticks by result (ok, feed_error, skipped).",
		}, []string{"result"}),
		RecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "livedash_ingest_records_total",
			Help: "Feed records processed by result (ok, skipped).",
		}, []string{"result"}),
		SnapshotsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "livedash_snapshots_written_total",
			Help: "Market snapshots appended to the store.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "livedash_feed_fetch_duration_seconds",
			Help:    "Upstream feed fetch latency.",
			Buckets: prometheus.DefBuckets,
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "livedash_ingest_tick_duration_seconds",
			Help:    "Full ingestion tick duration.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		MatchesInFeed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "livedash_feed_matches",
			Help: "Match records seen in the last feed document.",
		}),
	}

	registry.MustRegister(
		m.TicksTotal,
		m.RecordsTotal,
		m.SnapshotsWritten,
		m.FetchDuration,
		m.TickDuration,
		m.MatchesInFeed,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *IngestMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
