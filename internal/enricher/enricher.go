// Package enricher attaches technical indicators and fundamental
// data to stored price records. The enricher is a transform over one
// record plus its lookups; persisting the result stays with the
// caller.
package enricher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"time"

	"github.com/trogers1052/stock-enrichment-service/internal/fundamentals"
	"github.com/trogers1052/stock-enrichment-service/internal/indicators"
	"github.com/trogers1052/stock-enrichment-service/internal/models"
	"github.com/trogers1052/stock-enrichment-service/internal/provider"
)

// Enricher computes and merges enrichment data for single records.
type Enricher struct {
	loader       provider.Loader
	funds        *fundamentals.Index // nil when no fundamentals index was supplied
	threshold    int
	lookbackDays int
	sourceTag    string
	now          func() time.Time
}

// New creates an Enricher. threshold is the indicator-key count above
// which a record counts as already enriched; lookbackDays must cover
// the longest indicator window (70 calendar days guarantees the
// 50-day SMA and the 14-day RSI/ATR warm-up).
func New(loader provider.Loader, funds *fundamentals.Index, threshold, lookbackDays int, sourceTag string) *Enricher {
	return &Enricher{
		loader:       loader,
		funds:        funds,
		threshold:    threshold,
		lookbackDays: lookbackDays,
		sourceTag:    sourceTag,
		now:          time.Now,
	}
}

// Enrich computes indicators and fundamentals for rec as of asOf and
// merges whichever are non-empty into the record in place. Returns
// true only when the merge changed the record.
//
// A record that already carries more than the threshold of indicator
// keys is returned unchanged without any provider call, which makes
// enrichment idempotent per record. A loader ErrNotAvailable leaves
// indicators empty without failing the record.
func (e *Enricher) Enrich(ctx context.Context, rec *models.EnrichedRecord, asOf time.Time) (bool, error) {
	if rec.IsEnriched(e.threshold) {
		return false, nil
	}

	var set models.IndicatorSet
	series, err := e.loader.LoadSeries(ctx, rec.Ticker, asOf, e.lookbackDays)
	switch {
	case err == nil:
		set = indicators.Compute(series)
	case errors.Is(err, provider.ErrNotAvailable):
		log.Printf("No price series for %s, skipping indicators: %v", rec.Ticker, truncate(err.Error(), 120))
	default:
		return false, fmt.Errorf("failed to load series for %s: %w", rec.Ticker, err)
	}

	var funds models.FundamentalsRecord
	if e.funds != nil {
		funds = e.funds.Lookup(rec.Ticker)
	}

	changed := false
	if len(set) > 0 && !reflect.DeepEqual(rec.TechnicalIndicators, set) {
		rec.TechnicalIndicators = set
		changed = true
	}
	if len(funds) > 0 && !reflect.DeepEqual(rec.Fundamentals, funds) {
		rec.Fundamentals = funds
		changed = true
	}

	if changed {
		rec.TechnicalEnhancedTimestamp = e.now().UTC().Format(time.RFC3339)
		rec.TechnicalSource = e.sourceTag
		rec.SchemaVersion = models.SchemaVersion
	}
	return changed, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
