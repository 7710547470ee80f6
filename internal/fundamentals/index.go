// Package fundamentals joins static per-ticker fundamental data into
// enriched records. The index is loaded once per run from a single
// JSON file; lookups never touch the network.
package fundamentals

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

// fields carried from the index into enriched records
var knownFields = []string{
	models.FundMarketCap,
	models.FundPERatio,
	models.FundDebtToEquity,
	models.FundROEPercent,
	models.FundCurrentRatio,
	models.FundOperatingMargin,
	models.FundRevenueGrowth,
	models.FundProfitMargin,
	models.FundDividendYield,
	models.FundBookValue,
	models.FundSector,
	models.FundIndustry,
}

// Index holds the fundamentals for every known ticker, keyed by
// upper-cased symbol.
type Index struct {
	byTicker map[string]map[string]interface{}
}

// LoadIndex reads a JSON file containing an array of per-ticker field
// mappings and indexes it by ticker.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fundamentals file: %w", err)
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse fundamentals file: %w", err)
	}

	idx := &Index{byTicker: make(map[string]map[string]interface{}, len(entries))}
	for _, entry := range entries {
		ticker, _ := entry["ticker"].(string)
		if ticker == "" {
			continue
		}
		idx.byTicker[strings.ToUpper(ticker)] = entry
	}
	return idx, nil
}

// NewIndex builds an index directly from entries, used by tests and
// by callers that already hold the decoded data.
func NewIndex(entries []map[string]interface{}) *Index {
	idx := &Index{byTicker: make(map[string]map[string]interface{}, len(entries))}
	for _, entry := range entries {
		ticker, _ := entry["ticker"].(string)
		if ticker == "" {
			continue
		}
		idx.byTicker[strings.ToUpper(ticker)] = entry
	}
	return idx
}

// Len returns the number of indexed tickers.
func (idx *Index) Len() int {
	return len(idx.byTicker)
}

// Lookup returns the non-null fundamental fields for ticker. An
// unknown ticker yields an empty record. Null source fields are
// dropped here so a merged record never carries a null value.
func (idx *Index) Lookup(ticker string) models.FundamentalsRecord {
	entry, ok := idx.byTicker[strings.ToUpper(ticker)]
	if !ok {
		return models.FundamentalsRecord{}
	}

	rec := models.FundamentalsRecord{}
	for _, field := range knownFields {
		v, present := entry[field]
		if !present || v == nil {
			continue
		}
		if s, isString := v.(string); isString && s == "" {
			continue
		}
		rec[field] = v
	}
	return rec
}
