package enricher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-enrichment-service/internal/fundamentals"
	"github.com/trogers1052/stock-enrichment-service/internal/models"
	"github.com/trogers1052/stock-enrichment-service/internal/provider"
)

// fakeLoader serves a canned series and counts calls.
type fakeLoader struct {
	series []models.PriceBar
	err    error
	calls  int
}

func (f *fakeLoader) LoadSeries(ctx context.Context, ticker string, asOf time.Time, lookbackDays int) ([]models.PriceBar, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.series, nil
}

func risingSeries(n int) []models.PriceBar {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	for i := range bars {
		c := 100.0 + float64(i)
		bars[i] = models.PriceBar{
			Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10000,
		}
	}
	return bars
}

func baseRecord() *models.EnrichedRecord {
	return &models.EnrichedRecord{
		Ticker: "AAPL",
		Date:   "2025-09-18",
		Open:   180, High: 182, Low: 179, Close: 181,
		Volume: 40000,
	}
}

func TestEnrich(t *testing.T) {
	asOf := time.Date(2025, 9, 18, 0, 0, 0, 0, time.UTC)

	t.Run("computes and merges indicators", func(t *testing.T) {
		loader := &fakeLoader{series: risingSeries(60)}
		e := New(loader, nil, 5, 70, "alpaca")
		rec := baseRecord()

		changed, err := e.Enrich(context.Background(), rec, asOf)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Greater(t, len(rec.TechnicalIndicators), 5)
		assert.Contains(t, rec.TechnicalIndicators, models.IndicatorSMA20)
		assert.Equal(t, "alpaca", rec.TechnicalSource)
		assert.Equal(t, models.SchemaVersion, rec.SchemaVersion)
		assert.NotEmpty(t, rec.TechnicalEnhancedTimestamp)
	})

	t.Run("second call is a no-op with zero provider calls", func(t *testing.T) {
		loader := &fakeLoader{series: risingSeries(60)}
		e := New(loader, nil, 5, 70, "alpaca")
		rec := baseRecord()

		changed, err := e.Enrich(context.Background(), rec, asOf)
		require.NoError(t, err)
		require.True(t, changed)
		callsAfterFirst := loader.calls

		changed, err = e.Enrich(context.Background(), rec, asOf)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, callsAfterFirst, loader.calls, "no provider call on the second pass")
	})

	t.Run("already enriched record short-circuits", func(t *testing.T) {
		loader := &fakeLoader{series: risingSeries(60)}
		e := New(loader, nil, 5, 70, "alpaca")
		rec := baseRecord()
		rec.TechnicalIndicators = models.IndicatorSet{
			"sma_20": 1, "sma_50": 2, "ema_12": 3, "ema_26": 4,
			"macd": 5, "rsi": 6, "bb_upper": 7, "bb_middle": 8,
		}

		changed, err := e.Enrich(context.Background(), rec, asOf)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Zero(t, loader.calls)
	})

	t.Run("threshold is configurable", func(t *testing.T) {
		loader := &fakeLoader{series: risingSeries(60)}
		e := New(loader, nil, 10, 70, "alpaca")
		rec := baseRecord()
		rec.TechnicalIndicators = models.IndicatorSet{
			"sma_20": 1, "sma_50": 2, "ema_12": 3, "ema_26": 4,
			"macd": 5, "rsi": 6, "bb_upper": 7, "bb_middle": 8,
		}

		changed, err := e.Enrich(context.Background(), rec, asOf)
		require.NoError(t, err)
		assert.True(t, changed, "eight keys is below a threshold of ten")
		assert.Equal(t, 1, loader.calls)
	})

	t.Run("unavailable series still merges fundamentals", func(t *testing.T) {
		loader := &fakeLoader{err: provider.ErrNotAvailable}
		idx := fundamentals.NewIndex([]map[string]interface{}{
			{"ticker": "AAPL", "market_cap": 2800000.0, "pe_ratio": nil, "sector": "Technology"},
		})
		e := New(loader, idx, 5, 70, "alpaca")
		rec := baseRecord()

		changed, err := e.Enrich(context.Background(), rec, asOf)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Empty(t, rec.TechnicalIndicators)
		assert.Equal(t, 2800000.0, rec.Fundamentals[models.FundMarketCap])
	})

	t.Run("null fundamentals never reach the record", func(t *testing.T) {
		loader := &fakeLoader{series: risingSeries(60)}
		idx := fundamentals.NewIndex([]map[string]interface{}{
			{"ticker": "AAPL", "market_cap": 2800000.0, "pe_ratio": nil},
		})
		e := New(loader, idx, 5, 70, "alpaca")
		rec := baseRecord()

		_, err := e.Enrich(context.Background(), rec, asOf)
		require.NoError(t, err)
		_, hasPE := rec.Fundamentals[models.FundPERatio]
		assert.False(t, hasPE)
	})

	t.Run("unavailable series and no fundamentals changes nothing", func(t *testing.T) {
		loader := &fakeLoader{err: provider.ErrNotAvailable}
		e := New(loader, nil, 5, 70, "alpaca")
		rec := baseRecord()

		changed, err := e.Enrich(context.Background(), rec, asOf)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, rec.TechnicalSource)
	})

	t.Run("context cancellation propagates", func(t *testing.T) {
		loader := &fakeLoader{err: context.Canceled}
		e := New(loader, nil, 5, 70, "alpaca")

		_, err := e.Enrich(context.Background(), baseRecord(), asOf)
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
