package models

import "time"

// Enrichment event type constants
const (
	EventRecordEnriched = "RECORD_ENRICHED"
	EventRecordSkipped  = "RECORD_SKIPPED"
	EventEnrichRequest  = "ENRICH_REQUESTED"
)

// EnrichmentEvent represents a Kafka event for enrichment activity
type EnrichmentEvent struct {
	EventType      string    `json:"event_type"`
	Ticker         string    `json:"ticker"`
	Date           string    `json:"date"` // YYYY-MM-DD
	IndicatorCount int       `json:"indicator_count,omitempty"`
	HasFundamental bool      `json:"has_fundamentals,omitempty"`
	Source         string    `json:"source,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
