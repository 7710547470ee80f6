package models

import "time"

// Result holds the counters accumulated over one batch run. It is
// returned by value from the driver; callers aggregate their own
// totals rather than sharing mutable state with the run.
type Result struct {
	TotalSeen       int           `json:"total_seen"`
	Enriched        int           `json:"enriched"`
	AlreadyEnriched int           `json:"already_enriched"`
	Errors          int           `json:"errors"`
	ProviderCalls   int           `json:"provider_calls"`
	Elapsed         time.Duration `json:"elapsed_ns"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
}

// Add merges another result into this one and returns the sum.
func (r Result) Add(other Result) Result {
	r.TotalSeen += other.TotalSeen
	r.Enriched += other.Enriched
	r.AlreadyEnriched += other.AlreadyEnriched
	r.Errors += other.Errors
	r.ProviderCalls += other.ProviderCalls
	r.Elapsed += other.Elapsed
	return r
}
