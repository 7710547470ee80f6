package validate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

func goodRecord() *models.EnrichedRecord {
	return &models.EnrichedRecord{
		Ticker: "AAPL",
		Date:   "2025-09-18",
		Open:   230.10,
		High:   233.50,
		Low:    229.80,
		Close:  232.41,
		Volume: 51234000,
		TechnicalIndicators: models.IndicatorSet{
			models.IndicatorSMA20:      228.91,
			models.IndicatorSMA50:      221.33,
			models.IndicatorRSI:        61.72,
			models.IndicatorMACD:       2.18,
			models.IndicatorMACDSignal: 1.95,
			models.IndicatorMACDHist:   0.23,
			models.IndicatorBBUpper:    236.10,
			models.IndicatorBBMiddle:   228.91,
			models.IndicatorBBLower:    221.72,
		},
	}
}

func TestValidateRecord(t *testing.T) {
	t.Run("clean record passes", func(t *testing.T) {
		rep := ValidateRecord(goodRecord())
		assert.True(t, rep.Valid)
		assert.Empty(t, rep.Violations)
	})

	t.Run("high below low is flagged", func(t *testing.T) {
		rec := goodRecord()
		rec.High = 200
		rec.Low = 210
		rep := ValidateRecord(rec)
		assert.False(t, rep.Valid)
	})

	t.Run("negative volume is flagged", func(t *testing.T) {
		rec := goodRecord()
		rec.Volume = -1
		rep := ValidateRecord(rec)
		assert.False(t, rep.Valid)
	})

	t.Run("rsi above 100 is flagged", func(t *testing.T) {
		rec := goodRecord()
		rec.TechnicalIndicators[models.IndicatorRSI] = 104.2
		rep := ValidateRecord(rec)
		require.False(t, rep.Valid)
		assert.Equal(t, CheckBounds, rep.Violations[0].Check)
		assert.Contains(t, rep.Violations[0].Detail, "rsi")
	})

	t.Run("NaN indicator is flagged", func(t *testing.T) {
		rec := goodRecord()
		rec.TechnicalIndicators[models.IndicatorATR] = math.NaN()
		rep := ValidateRecord(rec)
		assert.False(t, rep.Valid)
	})

	t.Run("inverted bollinger bands are flagged", func(t *testing.T) {
		rec := goodRecord()
		rec.TechnicalIndicators[models.IndicatorBBUpper] = 220
		rep := ValidateRecord(rec)
		require.False(t, rep.Valid)
		assert.Equal(t, CheckBollingerOrder, rep.Violations[len(rep.Violations)-1].Check)
	})

	t.Run("inconsistent macd histogram is flagged", func(t *testing.T) {
		rec := goodRecord()
		rec.TechnicalIndicators[models.IndicatorMACDHist] = 5.0
		rep := ValidateRecord(rec)
		assert.False(t, rep.Valid)
	})

	t.Run("record without indicators only checks prices", func(t *testing.T) {
		rec := goodRecord()
		rec.TechnicalIndicators = nil
		rep := ValidateRecord(rec)
		assert.True(t, rep.Valid)
	})
}

func TestValidateBatch(t *testing.T) {
	clean := goodRecord()
	badRSI := goodRecord()
	badRSI.TechnicalIndicators[models.IndicatorRSI] = 120
	badVolume := goodRecord()
	badVolume.Volume = -5

	report := ValidateBatch([]*models.EnrichedRecord{clean, badRSI, badVolume})
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, 1, report.Valid)
	assert.Equal(t, 2, report.Invalid)
	assert.Equal(t, 1, report.FailuresCheck[CheckBounds])
	assert.Equal(t, 1, report.FailuresCheck[CheckVolume])
}

func TestScore(t *testing.T) {
	t.Run("fully populated record scores high", func(t *testing.T) {
		rec := goodRecord()
		for _, k := range []string{
			models.IndicatorEMA12, models.IndicatorEMA26, models.IndicatorATR,
			models.IndicatorVolumeSMA20, models.IndicatorVolumeRatio,
			models.IndicatorPctFrom52wHi, models.IndicatorPctFrom52wLo,
		} {
			rec.TechnicalIndicators[k] = 1
		}
		rec.Fundamentals = models.FundamentalsRecord{
			models.FundMarketCap:       3.5e12,
			models.FundPERatio:         29.4,
			models.FundDebtToEquity:    1.78,
			models.FundROEPercent:      147.3,
			models.FundCurrentRatio:    0.95,
			models.FundOperatingMargin: 31.2,
			models.FundRevenueGrowth:   6.1,
			models.FundProfitMargin:    25.3,
			models.FundDividendYield:   0.4,
			models.FundBookValue:       4.25,
		}

		score := Score(rec)
		assert.Equal(t, 100.0, score.OverallScore)
		assert.Equal(t, "excellent", score.Level)
		assert.Empty(t, score.MissingFields)
	})

	t.Run("bare OHLCV record scores poor", func(t *testing.T) {
		rec := goodRecord()
		rec.TechnicalIndicators = nil
		rec.Fundamentals = nil

		score := Score(rec)
		assert.Equal(t, 100.0, score.OHLCVScore)
		assert.Zero(t, score.TechnicalScore)
		assert.Zero(t, score.FundamentalScore)
		assert.Equal(t, "poor", score.Level)
		assert.Contains(t, score.MissingFields, models.IndicatorRSI)
	})

	t.Run("missing close costs ohlcv points", func(t *testing.T) {
		rec := goodRecord()
		rec.Close = 0
		score := Score(rec)
		assert.Less(t, score.OHLCVScore, 100.0)
		assert.Contains(t, score.MissingFields, "close")
	})
}

func TestScoreBatch(t *testing.T) {
	t.Run("aggregates levels and average", func(t *testing.T) {
		full := goodRecord()
		bare := goodRecord()
		bare.TechnicalIndicators = nil

		summary := ScoreBatch([]*models.EnrichedRecord{full, bare})
		assert.Equal(t, 2, summary.Records)
		assert.Greater(t, summary.AverageScore, 0.0)
		assert.Equal(t, 2, summary.ByLevel["poor"]+summary.ByLevel["fair"]+summary.ByLevel["good"]+summary.ByLevel["excellent"])
	})

	t.Run("empty batch", func(t *testing.T) {
		summary := ScoreBatch(nil)
		assert.Zero(t, summary.Records)
		assert.Zero(t, summary.AverageScore)
	})
}
