package database

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

// StoreEnrichment mirrors one enriched record into the relational
// sink: the OHLCV row plus every computed indicator. The batch driver
// calls this after the JSON file has been saved, so a database failure
// here never loses data.
func (db *DB) StoreEnrichment(rec *models.EnrichedRecord) error {
	date, err := time.Parse("2006-01-02", rec.Date)
	if err != nil {
		return fmt.Errorf("invalid record date %q: %w", rec.Date, err)
	}

	row := &models.PriceDataDaily{
		Symbol: rec.Ticker,
		Date:   date,
		Open:   decimal.NewFromFloat(rec.Open),
		High:   decimal.NewFromFloat(rec.High),
		Low:    decimal.NewFromFloat(rec.Low),
		Close:  decimal.NewFromFloat(rec.Close),
		Volume: rec.Volume,
	}
	if err := db.UpsertPriceData(row); err != nil {
		return err
	}

	return db.UpsertIndicatorBatch(rec.Ticker, date, rec.TechnicalIndicators)
}
