// Package provider loads daily price series from market-data APIs.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

// ErrNotAvailable signals an empty result or a structural provider
// error. Callers treat it as "skip indicators for this ticker", not
// as a fatal condition.
var ErrNotAvailable = errors.New("price series not available")

// ErrRateLimited signals that the provider throttled the request.
// The Alpaca client recovers from it internally; it only escapes
// when the post-cooldown retry is throttled again.
var ErrRateLimited = errors.New("provider rate limited")

// Loader obtains an ordered daily OHLCV series for a ticker covering
// lookbackDays calendar days up to asOf.
type Loader interface {
	LoadSeries(ctx context.Context, ticker string, asOf time.Time, lookbackDays int) ([]models.PriceBar, error)
}
