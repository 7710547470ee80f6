// Package batch drives enrichment over many tickers in bounded-size
// batches while respecting the provider's rate budget.
package batch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/trogers1052/stock-enrichment-service/internal/enricher"
	"github.com/trogers1052/stock-enrichment-service/internal/models"
	"github.com/trogers1052/stock-enrichment-service/internal/store"
	"github.com/trogers1052/stock-enrichment-service/internal/validate"
)

// EventPublisher publishes enrichment lifecycle events. A nil
// publisher disables events.
type EventPublisher interface {
	PublishRecordEnriched(ctx context.Context, rec *models.EnrichedRecord) error
	PublishRecordSkipped(ctx context.Context, ticker, date string) error
}

// IndicatorSink mirrors enriched values into a relational store. A
// nil sink disables mirroring.
type IndicatorSink interface {
	StoreEnrichment(rec *models.EnrichedRecord) error
}

// Options holds the driver tunables.
type Options struct {
	BatchSize        int
	Workers          int
	ItemDelay        time.Duration
	CallsPerCooldown int
	Cooldown         time.Duration
	Threshold        int
	DryRun           bool
}

// Driver processes work items in fixed-size batches. Results within
// a batch are collected before the next batch starts; batches never
// overlap.
type Driver struct {
	store    *store.FileStore
	enricher *enricher.Enricher
	counter  *CountingLoader
	pub      EventPublisher
	sink     IndicatorSink
	opts     Options
}

// NewDriver creates a Driver. counter must be the same CountingLoader
// the enricher's loader chain goes through, so the driver can track
// the provider budget.
func NewDriver(s *store.FileStore, e *enricher.Enricher, counter *CountingLoader, pub EventPublisher, sink IndicatorSink, opts Options) *Driver {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Driver{store: s, enricher: e, counter: counter, pub: pub, sink: sink, opts: opts}
}

// Run enriches every work item as of asOf and returns the run
// counters. Per-item failures are counted and logged; the run only
// stops early when ctx is cancelled.
func (d *Driver) Run(ctx context.Context, items []store.WorkItem, asOf time.Time) models.Result {
	res := models.Result{StartedAt: time.Now()}
	startCalls := d.counter.Count()

	totalBatches := (len(items) + d.opts.BatchSize - 1) / d.opts.BatchSize
	// The counter is shared across runs; budget this run's cooldowns
	// from its own starting point, not the process lifetime total.
	lastCooldownMark := startCalls

	for i := 0; i < len(items); i += d.opts.BatchSize {
		if ctx.Err() != nil {
			break
		}
		end := i + d.opts.BatchSize
		if end > len(items) {
			end = len(items)
		}
		batchNum := i/d.opts.BatchSize + 1
		log.Printf("Processing batch %d/%d (%d-%d of %d)", batchNum, totalBatches, i+1, end, len(items))

		d.runBatch(ctx, items[i:end], asOf, &res)

		// Cool down once the accumulated provider calls cross the
		// budget boundary. During cooldown no work proceeds.
		calls := d.counter.Count()
		if d.opts.CallsPerCooldown > 0 && calls-lastCooldownMark >= int64(d.opts.CallsPerCooldown) {
			lastCooldownMark = calls
			log.Printf("Rate budget pause after %d provider calls (%s)", calls, d.opts.Cooldown)
			select {
			case <-ctx.Done():
			case <-time.After(d.opts.Cooldown):
			}
		}

		log.Printf("Progress: %.1f%% | enriched=%d already=%d errors=%d",
			float64(end)/float64(len(items))*100, res.Enriched, res.AlreadyEnriched, res.Errors)
	}

	res.FinishedAt = time.Now()
	res.Elapsed = res.FinishedAt.Sub(res.StartedAt)
	res.ProviderCalls = int(d.counter.Count() - startCalls)
	return res
}

func (d *Driver) runBatch(ctx context.Context, batch []store.WorkItem, asOf time.Time, res *models.Result) {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, d.opts.Workers)
	)

	for _, item := range batch {
		if ctx.Err() != nil {
			break
		}
		if d.opts.ItemDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.opts.ItemDelay):
			}
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(item store.WorkItem) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := d.processItem(ctx, item, asOf)

			mu.Lock()
			res.TotalSeen++
			switch outcome {
			case itemEnriched:
				res.Enriched++
			case itemAlreadyEnriched:
				res.AlreadyEnriched++
			case itemErrored:
				res.Errors++
			}
			mu.Unlock()
		}(item)
	}

	wg.Wait()
}

type itemOutcome int

const (
	itemUnchanged itemOutcome = iota
	itemEnriched
	itemAlreadyEnriched
	itemErrored
)

// processItem enriches one record. Every failure is contained here:
// nothing a single ticker does can abort the batch.
func (d *Driver) processItem(ctx context.Context, item store.WorkItem, asOf time.Time) itemOutcome {
	rec, err := d.store.LoadPath(item.Path)
	if err != nil {
		log.Printf("Skipping %s: %s", item.Ticker, truncate(err.Error(), 120))
		return itemErrored
	}

	if rec.IsEnriched(d.opts.Threshold) {
		if d.pub != nil && !d.opts.DryRun {
			if err := d.pub.PublishRecordSkipped(ctx, rec.Ticker, rec.Date); err != nil {
				log.Printf("Failed to publish skip event for %s: %v", rec.Ticker, err)
			}
		}
		return itemAlreadyEnriched
	}

	changed, err := d.enricher.Enrich(ctx, rec, asOf)
	if err != nil {
		log.Printf("Enrichment failed for %s: %s", item.Ticker, truncate(err.Error(), 120))
		return itemErrored
	}
	if !changed {
		return itemUnchanged
	}

	// Out-of-bounds values are logged, never fatal.
	if rep := validate.ValidateRecord(rec); !rep.Valid {
		log.Printf("Quality violations for %s %s: %v", rec.Ticker, rec.Date, rep.Violations)
	}

	if d.opts.DryRun {
		log.Printf("Dry run: would save %s %s with %d indicators", rec.Ticker, rec.Date, len(rec.TechnicalIndicators))
		return itemEnriched
	}

	if err := d.store.Save(rec); err != nil {
		log.Printf("Failed to save %s: %s", item.Ticker, truncate(err.Error(), 120))
		return itemErrored
	}
	if d.sink != nil {
		if err := d.sink.StoreEnrichment(rec); err != nil {
			log.Printf("Failed to mirror %s to the indicator sink: %v", rec.Ticker, err)
		}
	}
	if d.pub != nil {
		if err := d.pub.PublishRecordEnriched(ctx, rec); err != nil {
			log.Printf("Failed to publish enrichment event for %s: %v", rec.Ticker, err)
		}
	}
	return itemEnriched
}

// LogSummary emits the human-readable end-of-run report.
func LogSummary(res models.Result) {
	log.Printf("Enrichment run complete")
	log.Printf("  Files seen:        %d", res.TotalSeen)
	log.Printf("  Enriched:          %d", res.Enriched)
	log.Printf("  Already enriched:  %d", res.AlreadyEnriched)
	log.Printf("  Errors:            %d", res.Errors)
	log.Printf("  Provider calls:    %d", res.ProviderCalls)
	log.Printf("  Elapsed:           %s", res.Elapsed.Round(time.Millisecond))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
