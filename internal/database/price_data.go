package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

// UpsertPriceData inserts or updates the daily OHLCV row for a
// symbol and date
func (db *DB) UpsertPriceData(p *models.PriceDataDaily) error {
	query := `
		INSERT INTO price_data_daily (symbol, date, open, high, low, close, volume, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
		RETURNING id
	`
	err := db.conn.QueryRow(query,
		p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, time.Now(),
	).Scan(&p.ID)

	if err != nil {
		return fmt.Errorf("failed to upsert price data: %w", err)
	}
	return nil
}

// GetPriceDataBySymbolAndDate retrieves the daily row for a specific
// symbol and date
func (db *DB) GetPriceDataBySymbolAndDate(symbol string, date time.Time) (*models.PriceDataDaily, error) {
	query := `
		SELECT id, symbol, date, open, high, low, close, volume, created_at
		FROM price_data_daily
		WHERE symbol = $1 AND date = $2
	`
	var p models.PriceDataDaily
	err := db.conn.QueryRow(query, symbol, date).Scan(
		&p.ID, &p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &p.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("price data not found for %s on %s", symbol, date.Format("2006-01-02"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price data: %w", err)
	}
	return &p, nil
}

// GetPriceDataRange retrieves daily rows for a symbol within a date
// range, ordered by date ascending
func (db *DB) GetPriceDataRange(symbol string, startDate, endDate time.Time) ([]*models.PriceDataDaily, error) {
	query := `
		SELECT id, symbol, date, open, high, low, close, volume, created_at
		FROM price_data_daily
		WHERE symbol = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`
	rows, err := db.conn.Query(query, symbol, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get price data range: %w", err)
	}
	defer rows.Close()

	var prices []*models.PriceDataDaily
	for rows.Next() {
		var p models.PriceDataDaily
		err := rows.Scan(
			&p.ID, &p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price data: %w", err)
		}
		prices = append(prices, &p)
	}

	return prices, nil
}

// DeletePriceDataOlderThan removes daily rows older than a specified
// date, mirroring the file store's archival cutoff
func (db *DB) DeletePriceDataOlderThan(date time.Time) (int64, error) {
	query := `DELETE FROM price_data_daily WHERE date < $1`
	result, err := db.conn.Exec(query, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old price data: %w", err)
	}
	return result.RowsAffected()
}
