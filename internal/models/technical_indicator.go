package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Indicator key constants as stored in enriched records
const (
	IndicatorSMA20        = "sma_20"
	IndicatorSMA50        = "sma_50"
	IndicatorEMA12        = "ema_12"
	IndicatorEMA26        = "ema_26"
	IndicatorMACD         = "macd"
	IndicatorMACDSignal   = "macd_signal"
	IndicatorMACDHist     = "macd_histogram"
	IndicatorRSI          = "rsi"
	IndicatorBBUpper      = "bb_upper"
	IndicatorBBMiddle     = "bb_middle"
	IndicatorBBLower      = "bb_lower"
	IndicatorVolumeSMA20  = "volume_sma_20"
	IndicatorVolumeRatio  = "volume_ratio"
	IndicatorATR          = "atr"
	IndicatorPctFrom52wHi = "percent_from_52w_high"
	IndicatorPctFrom52wLo = "percent_from_52w_low"
)

// IndicatorSet maps indicator keys to values computed as of the last
// bar of a series. The set is partial: an indicator whose minimum
// window is unmet is simply absent, never a sentinel value.
type IndicatorSet map[string]float64

// TechnicalIndicator represents one indicator value as stored in the
// relational sink, one row per (symbol, date, indicator_type).
type TechnicalIndicator struct {
	ID            int             `json:"id"`
	Symbol        string          `json:"symbol"`
	Date          time.Time       `json:"date"`
	IndicatorType string          `json:"indicator_type"`
	Value         decimal.Decimal `json:"value"`
	Timeframe     string          `json:"timeframe"`
	CreatedAt     time.Time       `json:"created_at"`
}
