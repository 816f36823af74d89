package domain

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; the search engine and the outer surfaces
// depend on them.

// RunObserver is notified after every completed search.
// Implemented by infra/metrics.Recorder and infra/sqlite.DB.
type RunObserver interface {
	ObserveRun(run Run)
}

// RunStore keeps completed searches for cross-run statistics.
// Implemented by infra/sqlite.DB.
type RunStore interface {
	RecordRun(run Run) error
	ListRuns(limit int) ([]Run, error)
	Summary() ([]StrategySummary, error)
}

// StrategySummary aggregates recorded runs of one strategy.
type StrategySummary struct {
	Strategy      Strategy `json:"strategy"`
	Runs          int      `json:"runs"`
	Hits          int      `json:"hits"`
	AvgMessages   float64  `json:"avg_messages"`
	AvgNodes      float64  `json:"avg_nodes_involved"`
	AvgHops       float64  `json:"avg_hops"`
	Redirects     int      `json:"redirects"`
	TotalMessages int      `json:"total_messages"`
}

// HitRate returns the fraction of runs that found the resource.
func (s StrategySummary) HitRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Runs)
}
