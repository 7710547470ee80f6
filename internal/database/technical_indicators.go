package database

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

// UpsertIndicatorBatch writes every computed indicator for one symbol
// and date in a single transaction. Keys follow the enriched-record
// vocabulary (sma_20, rsi, macd_histogram, ...).
func (db *DB) UpsertIndicatorBatch(symbol string, date time.Time, set models.IndicatorSet) error {
	if len(set) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO technical_indicators (symbol, date, indicator_type, value, timeframe, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, date, indicator_type, timeframe) DO UPDATE SET
			value = EXCLUDED.value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	// Deterministic order keeps transaction locking predictable when
	// two runs touch the same symbol.
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := time.Now()
	for _, k := range keys {
		value := decimal.NewFromFloat(set[k])
		if _, err := stmt.Exec(symbol, date, k, value, "daily", now); err != nil {
			return fmt.Errorf("failed to insert indicator %s for %s: %w", k, symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetIndicator retrieves a specific indicator for a symbol on a date
func (db *DB) GetIndicator(symbol string, date time.Time, indicatorType string) (*models.TechnicalIndicator, error) {
	query := `
		SELECT id, symbol, date, indicator_type, value, timeframe, created_at
		FROM technical_indicators
		WHERE symbol = $1 AND date = $2 AND indicator_type = $3 AND timeframe = 'daily'
	`
	var t models.TechnicalIndicator
	err := db.conn.QueryRow(query, symbol, date, indicatorType).Scan(
		&t.ID, &t.Symbol, &t.Date, &t.IndicatorType, &t.Value, &t.Timeframe, &t.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("indicator not found: %s %s on %s", symbol, indicatorType, date.Format("2006-01-02"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get indicator: %w", err)
	}
	return &t, nil
}

// GetIndicatorsBySymbol retrieves all indicators for a symbol on a specific date
func (db *DB) GetIndicatorsBySymbol(symbol string, date time.Time) ([]*models.TechnicalIndicator, error) {
	query := `
		SELECT id, symbol, date, indicator_type, value, timeframe, created_at
		FROM technical_indicators
		WHERE symbol = $1 AND date = $2
		ORDER BY indicator_type
	`
	rows, err := db.conn.Query(query, symbol, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get indicators: %w", err)
	}
	defer rows.Close()

	var indicators []*models.TechnicalIndicator
	for rows.Next() {
		var t models.TechnicalIndicator
		err := rows.Scan(
			&t.ID, &t.Symbol, &t.Date, &t.IndicatorType, &t.Value, &t.Timeframe, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan indicator: %w", err)
		}
		indicators = append(indicators, &t)
	}

	return indicators, nil
}

// GetIndicatorHistory retrieves historical values for a specific indicator
func (db *DB) GetIndicatorHistory(symbol string, indicatorType string, limit int) ([]*models.TechnicalIndicator, error) {
	query := `
		SELECT id, symbol, date, indicator_type, value, timeframe, created_at
		FROM technical_indicators
		WHERE symbol = $1 AND indicator_type = $2
		ORDER BY date DESC
		LIMIT $3
	`
	rows, err := db.conn.Query(query, symbol, indicatorType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get indicator history: %w", err)
	}
	defer rows.Close()

	var indicators []*models.TechnicalIndicator
	for rows.Next() {
		var t models.TechnicalIndicator
		err := rows.Scan(
			&t.ID, &t.Symbol, &t.Date, &t.IndicatorType, &t.Value, &t.Timeframe, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan indicator: %w", err)
		}
		indicators = append(indicators, &t)
	}

	return indicators, nil
}

// GetLatestIndicators retrieves the most recent value of each
// indicator type for a symbol
func (db *DB) GetLatestIndicators(symbol string) ([]*models.TechnicalIndicator, error) {
	query := `
		SELECT DISTINCT ON (indicator_type)
			id, symbol, date, indicator_type, value, timeframe, created_at
		FROM technical_indicators
		WHERE symbol = $1
		ORDER BY indicator_type, date DESC
	`
	rows, err := db.conn.Query(query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest indicators: %w", err)
	}
	defer rows.Close()

	var indicators []*models.TechnicalIndicator
	for rows.Next() {
		var t models.TechnicalIndicator
		err := rows.Scan(
			&t.ID, &t.Symbol, &t.Date, &t.IndicatorType, &t.Value, &t.Timeframe, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan indicator: %w", err)
		}
		indicators = append(indicators, &t)
	}

	return indicators, nil
}

// DeleteIndicatorsOlderThan removes indicators older than a specified date
func (db *DB) DeleteIndicatorsOlderThan(date time.Time) (int64, error) {
	query := `DELETE FROM technical_indicators WHERE date < $1`
	result, err := db.conn.Exec(query, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old indicators: %w", err)
	}
	return result.RowsAffected()
}
