package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search pipeline Prometheus metrics.
var (
	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "souq",
			Name:      "search_stage_duration_seconds",
			Help:      "Duration of each search pipeline stage",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage", "status"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "souq",
			Name:      "search_requests_total",
			Help:      "Search requests by primary language and outcome",
		},
		[]string{"language", "status"},
	)

	SearchBackfillDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "souq",
			Name:      "search_backfill_degraded_total",
			Help:      "Searches answered without semantic backfill after a vector stage failure",
		},
	)

	SearchRerankSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "souq",
			Name:      "search_rerank_skipped_total",
			Help:      "Lexical candidates dropped during reranking",
		},
		[]string{"reason"},
	)

	WebSearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "souq",
			Name:      "websearch_requests_total",
			Help:      "Outbound web search requests",
		},
		[]string{"status"},
	)

	CatalogImportItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "souq",
			Name:      "catalog_import_items_total",
			Help:      "Catalog items processed by the importer",
		},
		[]string{"status"},
	)
)

var searchOnce sync.Once

// RegisterSearchMetrics registers search, web search and import metrics.
func RegisterSearchMetrics() {
	searchOnce.Do(func() {
		prometheus.MustRegister(
			SearchStageDuration,
			SearchRequestsTotal,
			SearchBackfillDegradedTotal,
			SearchRerankSkippedTotal,
			WebSearchRequestsTotal,
			CatalogImportItemsTotal,
		)
	})
}
