package batch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/trogers1052/stock-enrichment-service/internal/models"
	"github.com/trogers1052/stock-enrichment-service/internal/provider"
)

// CountingLoader decorates a Loader with an atomic call counter so
// the driver can enforce the provider's request budget.
type CountingLoader struct {
	inner provider.Loader
	n     atomic.Int64
}

// NewCountingLoader wraps inner.
func NewCountingLoader(inner provider.Loader) *CountingLoader {
	return &CountingLoader{inner: inner}
}

// LoadSeries counts the call and delegates.
func (c *CountingLoader) LoadSeries(ctx context.Context, ticker string, asOf time.Time, lookbackDays int) ([]models.PriceBar, error) {
	c.n.Add(1)
	return c.inner.LoadSeries(ctx, ticker, asOf, lookbackDays)
}

// Count returns the number of provider calls made so far.
func (c *CountingLoader) Count() int64 {
	return c.n.Load()
}
