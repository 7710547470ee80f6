package models

import "time"

// PriceBar represents one daily OHLCV observation for a ticker.
// Series are ordered by date ascending and gap-tolerant: missing
// trading days are expected, duplicate dates are not.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Closes extracts the close prices from a series in order.
func Closes(bars []PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
