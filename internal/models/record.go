package models

// SchemaVersion is stamped on every record written by this service.
const SchemaVersion = "2.0"

// EnrichedRecord is the persisted unit: one JSON file per ticker per
// calendar date under the historical/daily tree.
type EnrichedRecord struct {
	RecordID string  `json:"record_id,omitempty"`
	Ticker   string  `json:"ticker"`
	Date     string  `json:"date"` // YYYY-MM-DD
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`

	TechnicalIndicators IndicatorSet       `json:"technical_indicators,omitempty"`
	Fundamentals        FundamentalsRecord `json:"fundamentals,omitempty"`

	TechnicalEnhancedTimestamp string `json:"technical_enhanced_timestamp,omitempty"`
	TechnicalSource            string `json:"technical_source,omitempty"`
	SchemaVersion              string `json:"schema_version,omitempty"`

	CollectionTimestamp string `json:"collection_timestamp,omitempty"`
	CollectionJobID     string `json:"collection_job_id,omitempty"`
	DataSource          string `json:"data_source,omitempty"`
}

// IsEnriched reports whether the record already carries more than
// threshold indicator keys and should not be recomputed.
func (r *EnrichedRecord) IsEnriched(threshold int) bool {
	return len(r.TechnicalIndicators) > threshold
}
