package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CollectionsTotal tracks collection sweeps per source and outcome.
	CollectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skimmer_collections_total",
			Help: "Total number of collection sweeps",
		},
		[]string{"source", "outcome"},
	)

	// ItemsCollected tracks standardized items produced per source.
	ItemsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skimmer_items_collected_total",
			Help: "Total number of standardized items collected",
		},
		[]string{"source"},
	)

	// ItemsDeduplicated tracks items dropped by the seen store.
	ItemsDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skimmer_items_deduplicated_total",
			Help: "Total number of items dropped as already seen",
		},
		[]string{"source"},
	)

	// CollectLatency tracks sweep latency per source.
	CollectLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skimmer_collect_latency_seconds",
			Help:    "Collection sweep latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// SourceHealthGauge tracks the derived health per source
	// (0=healthy, 1=degraded, 2=unhealthy).
	SourceHealthGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "skimmer_source_health",
			Help: "Source health status (0=healthy, 1=degraded, 2=unhealthy)",
		},
		[]string{"source"},
	)
)
