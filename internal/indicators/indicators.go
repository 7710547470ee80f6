// Package indicators computes technical indicators from a daily OHLCV
// series. All functions are pure: no I/O, no side effects, and the
// same series always produces the same IndicatorSet.
package indicators

import (
	"math"

	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

// Window constants for the supported indicators.
const (
	SMAShortWindow  = 20
	SMALongWindow   = 50
	EMAFastSpan     = 12
	EMASlowSpan     = 26
	MACDSignalSpan  = 9
	RSIWindow       = 14
	BollingerWindow = 20
	BollingerWidth  = 2.0
	ATRWindow       = 14
	ATRMinBars      = 20
	YearWindow      = 252
)

// Compute calculates every indicator whose minimum window the series
// satisfies, as of the last bar. Indicators with an unmet window or a
// zero denominator are omitted from the result, never emitted as
// zero or NaN.
func Compute(series []models.PriceBar) models.IndicatorSet {
	out := models.IndicatorSet{}
	n := len(series)
	if n == 0 {
		return out
	}
	closes := models.Closes(series)

	if n >= SMAShortWindow {
		out[models.IndicatorSMA20] = SMA(closes, SMAShortWindow)
	}
	if n >= SMALongWindow {
		out[models.IndicatorSMA50] = SMA(closes, SMALongWindow)
	}

	var emaFast, emaSlow []float64
	if n >= EMAFastSpan {
		emaFast = EMASeries(closes, EMAFastSpan)
		out[models.IndicatorEMA12] = emaFast[n-1]
	}
	if n >= EMASlowSpan {
		emaSlow = EMASeries(closes, EMASlowSpan)
		out[models.IndicatorEMA26] = emaSlow[n-1]

		macd := make([]float64, n)
		for i := range macd {
			macd[i] = emaFast[i] - emaSlow[i]
		}
		signal := EMASeries(macd, MACDSignalSpan)
		out[models.IndicatorMACD] = macd[n-1]
		out[models.IndicatorMACDSignal] = signal[n-1]
		out[models.IndicatorMACDHist] = macd[n-1] - signal[n-1]
	}

	if n >= RSIWindow+1 {
		out[models.IndicatorRSI] = RSI(closes, RSIWindow)
	}

	if n >= BollingerWindow {
		mid := SMA(closes, BollingerWindow)
		dev := stdDev(closes[n-BollingerWindow:], mid)
		out[models.IndicatorBBUpper] = mid + BollingerWidth*dev
		out[models.IndicatorBBMiddle] = mid
		out[models.IndicatorBBLower] = mid - BollingerWidth*dev
	}

	if n >= SMAShortWindow {
		volSMA := volumeSMA(series, SMAShortWindow)
		out[models.IndicatorVolumeSMA20] = volSMA
		if volSMA > 0 {
			out[models.IndicatorVolumeRatio] = float64(series[n-1].Volume) / volSMA
		}
	}

	if n >= ATRMinBars {
		out[models.IndicatorATR] = ATR(series, ATRWindow)
	}

	if n >= YearWindow {
		hi, lo := closeRange(closes[n-YearWindow:])
		if hi != lo {
			last := closes[n-1]
			out[models.IndicatorPctFrom52wHi] = ((last - hi) / hi) * 100
			out[models.IndicatorPctFrom52wLo] = ((last - lo) / lo) * 100
		}
	}

	return out
}

// SMA computes the arithmetic mean of the last period values.
// The caller guarantees len(values) >= period.
func SMA(values []float64, period int) float64 {
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// EMASeries computes the full exponential moving average series with
// smoothing 2/(span+1), seeded with the first value. This is the
// cumulative convention: each output depends only on prior outputs,
// so early values converge toward the weighted form over time.
func EMASeries(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	k := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1.0-k)
	}
	return out
}

// RSI computes the relative strength index over the trailing window
// using the rolling mean of gains and losses across the last
// `period` day-over-day deltas. Returns 100 when the mean loss is 0.
// The caller guarantees len(closes) >= period+1.
func RSI(closes []float64, period int) float64 {
	var gain, loss float64
	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// ATR computes the mean true range over the trailing window. True
// range is max(high-low, |high-prevClose|, |low-prevClose|); the
// very first bar of a series has no previous close and falls back
// to high-low.
func ATR(series []models.PriceBar, window int) float64 {
	n := len(series)
	start := n - window
	sum := 0.0
	for i := start; i < n; i++ {
		b := series[i]
		tr := b.High - b.Low
		if i > 0 {
			prev := series[i-1].Close
			if hc := math.Abs(b.High - prev); hc > tr {
				tr = hc
			}
			if lc := math.Abs(b.Low - prev); lc > tr {
				tr = lc
			}
		}
		sum += tr
	}
	return sum / float64(window)
}

// stdDev computes the population standard deviation around mean.
func stdDev(values []float64, mean float64) float64 {
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func volumeSMA(series []models.PriceBar, period int) float64 {
	sum := 0.0
	for i := len(series) - period; i < len(series); i++ {
		sum += float64(series[i].Volume)
	}
	return sum / float64(period)
}

func closeRange(closes []float64) (hi, lo float64) {
	hi = math.Inf(-1)
	lo = math.Inf(1)
	for _, c := range closes {
		if c > hi {
			hi = c
		}
		if c < lo {
			lo = c
		}
	}
	return hi, lo
}
