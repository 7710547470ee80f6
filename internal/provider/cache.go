package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

// CachedLoader wraps a Loader with a Redis bar cache so that re-runs
// within the TTL do not re-spend the provider's request budget.
// Cache failures are never fatal: a miss or a Redis error falls
// through to the wrapped loader.
type CachedLoader struct {
	inner Loader
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedLoader creates a caching wrapper around inner.
func NewCachedLoader(inner Loader, rdb *redis.Client, ttl time.Duration) *CachedLoader {
	return &CachedLoader{inner: inner, rdb: rdb, ttl: ttl}
}

// LoadSeries returns the cached series when present, otherwise loads
// from the wrapped loader and caches the result. ErrNotAvailable
// results are not cached so a transient provider outage does not
// poison later runs.
func (c *CachedLoader) LoadSeries(ctx context.Context, ticker string, asOf time.Time, lookbackDays int) ([]models.PriceBar, error) {
	key := c.key(ticker, asOf, lookbackDays)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var bars []models.PriceBar
		if err := json.Unmarshal(data, &bars); err == nil && len(bars) > 0 {
			return bars, nil
		}
	}

	bars, err := c.inner.LoadSeries(ctx, ticker, asOf, lookbackDays)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(bars); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.Printf("Failed to cache bars for %s: %v", ticker, err)
		}
	}

	return bars, nil
}

func (c *CachedLoader) key(ticker string, asOf time.Time, lookbackDays int) string {
	return fmt.Sprintf("bars:%s:%s:%d", ticker, asOf.Format("2006-01-02"), lookbackDays)
}
