package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceDataDaily represents one daily OHLCV row in the relational
// sink. The pure indicator math works on PriceBar; this type exists
// only at the database boundary where exact decimal values matter.
type PriceDataDaily struct {
	ID        int             `json:"id"`
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	CreatedAt time.Time       `json:"created_at"`
}

// PriceDataFromBar converts a provider bar into a sink row.
func PriceDataFromBar(symbol string, b PriceBar) *PriceDataDaily {
	return &PriceDataDaily{
		Symbol: symbol,
		Date:   b.Date,
		Open:   decimal.NewFromFloat(b.Open),
		High:   decimal.NewFromFloat(b.High),
		Low:    decimal.NewFromFloat(b.Low),
		Close:  decimal.NewFromFloat(b.Close),
		Volume: b.Volume,
	}
}
