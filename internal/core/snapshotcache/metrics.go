package snapshotcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for snapshot cache operations.
type Metrics struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	updates prometheus.Counter
	purges  prometheus.Counter
	entries prometheus.Gauge
	bytes   prometheus.Histogram
}

// NewMetrics creates the cache collectors and registers them on reg.
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "entityundo_snapshot_cache_hits_total",
			Help: "Retrieve calls answered from the cache",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "entityundo_snapshot_cache_misses_total",
			Help: "Retrieve calls with no cached snapshot",
		}),
		updates: factory.NewCounter(prometheus.CounterOpts{
			Name: "entityundo_snapshot_cache_updates_total",
			Help: "Snapshots written from a live entity",
		}),
		purges: factory.NewCounter(prometheus.CounterOpts{
			Name: "entityundo_snapshot_cache_purges_total",
			Help: "Entries removed from the cache",
		}),
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "entityundo_snapshot_cache_entries",
			Help: "Number of cached snapshots",
		}),
		bytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "entityundo_snapshot_size_bytes",
			Help:    "Size of snapshots written to the cache",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		}),
	}
}
