// Package pipeline ties the store, enricher, and batch driver into
// the run-level operations exposed by the CLI, the HTTP API, the
// Kafka consumer, and the daily schedule.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/trogers1052/stock-enrichment-service/internal/batch"
	"github.com/trogers1052/stock-enrichment-service/internal/enricher"
	"github.com/trogers1052/stock-enrichment-service/internal/models"
	"github.com/trogers1052/stock-enrichment-service/internal/store"
)

// Pipeline coordinates full-date runs and single-ticker requests.
type Pipeline struct {
	store    *store.FileStore
	enricher *enricher.Enricher
	driver   *batch.Driver

	mu   sync.Mutex
	last *models.Result
}

// New creates a Pipeline over an already-wired driver.
func New(s *store.FileStore, e *enricher.Enricher, d *batch.Driver) *Pipeline {
	return &Pipeline{store: s, enricher: e, driver: d}
}

// RunForDate enriches every stored record for the given date and
// returns the run counters.
func (p *Pipeline) RunForDate(ctx context.Context, date time.Time) (models.Result, error) {
	items, err := p.store.ListForDate(date)
	if err != nil {
		return models.Result{}, fmt.Errorf("failed to list records for %s: %w", date.Format("2006-01-02"), err)
	}
	log.Printf("Found %d records for %s", len(items), date.Format("2006-01-02"))

	res := p.driver.Run(ctx, items, date)
	batch.LogSummary(res)

	p.mu.Lock()
	p.last = &res
	p.mu.Unlock()
	return res, nil
}

// RunForTickers enriches the given tickers for one date. A ticker
// with no stored record on that date counts as an error item in the
// result; the run continues past it.
func (p *Pipeline) RunForTickers(ctx context.Context, tickers []string, date time.Time) (models.Result, error) {
	var items []store.WorkItem
	for _, ticker := range tickers {
		path := p.store.RecordPath(ticker, date)
		items = append(items, store.WorkItem{Ticker: ticker, Path: path})
	}

	res := p.driver.Run(ctx, items, date)
	batch.LogSummary(res)

	p.mu.Lock()
	p.last = &res
	p.mu.Unlock()
	return res, nil
}

// EnrichTicker enriches one stored record in place. It satisfies the
// Kafka consumer's RequestHandler contract.
func (p *Pipeline) EnrichTicker(ctx context.Context, ticker string, date time.Time) (bool, error) {
	rec, err := p.store.Load(ticker, date)
	if err != nil {
		return false, err
	}

	changed, err := p.enricher.Enrich(ctx, rec, date)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	if err := p.store.Save(rec); err != nil {
		return false, err
	}
	return true, nil
}

// ArchivePreviousMonth compresses the previous calendar month of
// daily records for every known ticker. Returns the total number of
// records archived.
func (p *Pipeline) ArchivePreviousMonth(now time.Time) (int, error) {
	prev := now.AddDate(0, -1, 0)
	year, month := prev.Format("2006"), prev.Format("01")

	tickers, err := p.store.Tickers()
	if err != nil {
		return 0, fmt.Errorf("failed to list tickers for archiving: %w", err)
	}

	total := 0
	for _, ticker := range tickers {
		n, err := p.store.ArchiveMonth(ticker, year, month)
		if err != nil {
			log.Printf("Failed to archive %s %s-%s: %v", ticker, year, month, err)
			continue
		}
		total += n
	}
	log.Printf("Archived %d records for %s-%s across %d tickers", total, year, month, len(tickers))
	return total, nil
}

// LastResult returns the most recent run counters, if any run has
// completed since startup.
func (p *Pipeline) LastResult() (models.Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return models.Result{}, false
	}
	return *p.last, true
}
