// Package metrics provides Prometheus metrics for peersearch:
// searches, message overhead, redirects and the state of the overlay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tutu-network/peersearch/internal/domain"
)

// ─── Searches ───────────────────────────────────────────────────────────────

// SearchesTotal counts completed searches by strategy and outcome.
var SearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "peersearch",
	Name:      "searches_total",
	Help:      "Total completed searches.",
}, []string{"strategy", "outcome"})

// SearchMessages tracks the message overhead of each search.
var SearchMessages = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "peersearch",
	Name:      "search_messages",
	Help:      "Messages exchanged per search.",
	Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256},
}, []string{"strategy"})

// SearchNodesInvolved tracks how many distinct peers processed each search.
var SearchNodesInvolved = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "peersearch",
	Name:      "search_nodes_involved",
	Help:      "Distinct peers that processed a search.",
	Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128},
}, []string{"strategy"})

// SearchDuration tracks wall-clock time of each search.
var SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "peersearch",
	Name:      "search_duration_seconds",
	Help:      "Search duration in seconds.",
	Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
}, []string{"strategy"})

// CacheRedirects counts searches answered through a cached holder.
var CacheRedirects = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "peersearch",
	Name:      "cache_redirects_total",
	Help:      "Searches resolved by an informed cache redirect.",
}, []string{"strategy"})

// ─── Overlay ────────────────────────────────────────────────────────────────

// OverlayPeers tracks the number of peers in the loaded overlay.
var OverlayPeers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "peersearch",
	Name:      "overlay_peers",
	Help:      "Number of peers in the loaded overlay.",
})

// OverlayEdges tracks the number of undirected edges in the loaded overlay.
var OverlayEdges = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "peersearch",
	Name:      "overlay_edges",
	Help:      "Number of edges in the loaded overlay.",
})

// CacheEntries tracks the cached (resource, holder) pairs across all peers.
var CacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "peersearch",
	Name:      "cache_entries",
	Help:      "Cached (resource, holder) pairs across all peers.",
})

// ─── Recorder ───────────────────────────────────────────────────────────────

// Recorder feeds completed runs into the metrics above.
// It implements domain.RunObserver.
type Recorder struct {
	cacheSize func() int
}

// NewRecorder creates a recorder. cacheSize, if set, is sampled after
// every run to update CacheEntries.
func NewRecorder(cacheSize func() int) *Recorder {
	return &Recorder{cacheSize: cacheSize}
}

// ObserveRun updates the search metrics from run.
func (r *Recorder) ObserveRun(run domain.Run) {
	strategy := string(run.Request.Strategy)
	SearchesTotal.WithLabelValues(strategy, Outcome(run.Result)).Inc()
	SearchMessages.WithLabelValues(strategy).Observe(float64(run.Result.Messages))
	SearchNodesInvolved.WithLabelValues(strategy).Observe(float64(run.Result.NodesInvolved))
	SearchDuration.WithLabelValues(strategy).Observe(run.Elapsed.Seconds())
	if run.Result.Redirected {
		CacheRedirects.WithLabelValues(strategy).Inc()
	}
	if r.cacheSize != nil {
		CacheEntries.Set(float64(r.cacheSize()))
	}
}

// Outcome labels a result "found" or "not_found".
func Outcome(res domain.SearchResult) string {
	if res.Found {
		return "found"
	}
	return "not_found"
}
