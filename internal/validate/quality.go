// Package validate checks enriched records for bound violations and
// scores their field completeness. Violations never block the
// pipeline; they surface bad provider data before downstream
// consumers trade on it.
package validate

import (
	"fmt"
	"math"
	"sort"

	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

// Violation check labels
const (
	CheckPricePositive  = "price_positive"
	CheckPriceOrdering  = "price_ordering"
	CheckVolume         = "volume_non_negative"
	CheckBounds         = "indicator_bounds"
	CheckNaN            = "nan_value"
	CheckInf            = "inf_value"
	CheckBollingerOrder = "bollinger_order"
	CheckMACDIdentity   = "macd_identity"
)

// Violation is one failed check with its human-readable detail.
type Violation struct {
	Check  string `json:"check"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	return v.Check + ": " + v.Detail
}

// bounds is the closed interval an indicator value must fall in.
type bounds struct {
	min, max float64
}

// indicatorBounds holds the absolute range for each indicator key.
// Unbounded sides use infinities.
var indicatorBounds = map[string]bounds{
	models.IndicatorRSI:          {0, 100},
	models.IndicatorSMA20:        {0, math.Inf(1)},
	models.IndicatorSMA50:        {0, math.Inf(1)},
	models.IndicatorEMA12:        {0, math.Inf(1)},
	models.IndicatorEMA26:        {0, math.Inf(1)},
	models.IndicatorBBUpper:      {0, math.Inf(1)},
	models.IndicatorBBMiddle:     {0, math.Inf(1)},
	models.IndicatorBBLower:      {0, math.Inf(1)},
	models.IndicatorATR:          {0, math.Inf(1)},
	models.IndicatorVolumeSMA20:  {0, math.Inf(1)},
	models.IndicatorVolumeRatio:  {0, math.Inf(1)},
	models.IndicatorPctFrom52wHi: {math.Inf(-1), 0},
	models.IndicatorPctFrom52wLo: {0, math.Inf(1)},
}

// Report is the outcome of validating one record.
type Report struct {
	Ticker     string      `json:"ticker"`
	Date       string      `json:"date"`
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// ValidateRecord checks price sanity, indicator bounds, and the
// internal ordering constraints between related indicators.
func ValidateRecord(rec *models.EnrichedRecord) Report {
	var violations []Violation
	flag := func(check, format string, args ...interface{}) {
		violations = append(violations, Violation{Check: check, Detail: fmt.Sprintf(format, args...)})
	}

	// Price sanity.
	if rec.Open <= 0 || rec.High <= 0 || rec.Low <= 0 || rec.Close <= 0 {
		flag(CheckPricePositive, "non-positive OHLC value")
	}
	if rec.High < rec.Low {
		flag(CheckPriceOrdering, "high %.2f below low %.2f", rec.High, rec.Low)
	}
	if rec.High < rec.Open || rec.High < rec.Close {
		flag(CheckPriceOrdering, "high below open or close")
	}
	if rec.Low > rec.Open || rec.Low > rec.Close {
		flag(CheckPriceOrdering, "low above open or close")
	}
	if rec.Volume < 0 {
		flag(CheckVolume, "negative volume %d", rec.Volume)
	}

	// Indicator values, in key order so reports are deterministic.
	keys := make([]string, 0, len(rec.TechnicalIndicators))
	for k := range rec.TechnicalIndicators {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := rec.TechnicalIndicators[k]
		if math.IsNaN(v) {
			flag(CheckNaN, "%s is NaN", k)
			continue
		}
		if math.IsInf(v, 0) {
			flag(CheckInf, "%s is Inf", k)
			continue
		}
		if b, ok := indicatorBounds[k]; ok && (v < b.min || v > b.max) {
			flag(CheckBounds, "%s=%.2f outside bounds [%g, %g]", k, v, b.min, b.max)
		}
	}

	// Bollinger Bands must stack upper >= middle >= lower.
	upper, hasUpper := rec.TechnicalIndicators[models.IndicatorBBUpper]
	middle, hasMiddle := rec.TechnicalIndicators[models.IndicatorBBMiddle]
	lower, hasLower := rec.TechnicalIndicators[models.IndicatorBBLower]
	if hasUpper && hasMiddle && hasLower && !(upper >= middle && middle >= lower) {
		flag(CheckBollingerOrder, "upper=%.2f middle=%.2f lower=%.2f", upper, middle, lower)
	}

	// MACD histogram must equal line minus signal.
	line, hasLine := rec.TechnicalIndicators[models.IndicatorMACD]
	signal, hasSignal := rec.TechnicalIndicators[models.IndicatorMACDSignal]
	hist, hasHist := rec.TechnicalIndicators[models.IndicatorMACDHist]
	if hasLine && hasSignal && hasHist && math.Abs(hist-(line-signal)) > 1e-6 {
		flag(CheckMACDIdentity, "histogram %.4f does not equal line-signal %.4f", hist, line-signal)
	}

	return Report{
		Ticker:     rec.Ticker,
		Date:       rec.Date,
		Valid:      len(violations) == 0,
		Violations: violations,
	}
}

// BatchReport aggregates validation over a run: how many records
// failed and which checks failed most.
type BatchReport struct {
	Records       int            `json:"records"`
	Valid         int            `json:"valid"`
	Invalid       int            `json:"invalid"`
	FailuresCheck map[string]int `json:"failures_by_check"`
}

// ValidateBatch validates every record and tallies failures per check.
func ValidateBatch(records []*models.EnrichedRecord) BatchReport {
	report := BatchReport{FailuresCheck: map[string]int{}}
	for _, rec := range records {
		rep := ValidateRecord(rec)
		report.Records++
		if rep.Valid {
			report.Valid++
			continue
		}
		report.Invalid++
		for _, v := range rep.Violations {
			report.FailuresCheck[v.Check]++
		}
	}
	return report
}
