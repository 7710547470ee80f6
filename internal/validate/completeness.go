package validate

import (
	"math"
	"sort"

	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

// Category weights for the overall completeness score. Price data
// dominates because nothing downstream works without it.
const (
	weightOHLCV        = 0.40
	weightTechnical    = 0.35
	weightFundamentals = 0.25
)

// Per-field importance within each category. A missing low-weight
// field (sector, dividend yield) costs less than a missing core one.
var technicalImportance = map[string]float64{
	models.IndicatorRSI:          1.0,
	models.IndicatorMACD:         0.9,
	models.IndicatorMACDSignal:   0.9,
	models.IndicatorMACDHist:     0.8,
	models.IndicatorSMA20:        1.0,
	models.IndicatorSMA50:        1.0,
	models.IndicatorEMA12:        0.8,
	models.IndicatorEMA26:        0.8,
	models.IndicatorBBUpper:      0.7,
	models.IndicatorBBMiddle:     0.7,
	models.IndicatorBBLower:      0.7,
	models.IndicatorATR:          0.8,
	models.IndicatorVolumeSMA20:  0.6,
	models.IndicatorVolumeRatio:  0.6,
	models.IndicatorPctFrom52wHi: 0.5,
	models.IndicatorPctFrom52wLo: 0.5,
}

var fundamentalImportance = map[string]float64{
	models.FundMarketCap:       1.0,
	models.FundPERatio:         0.9,
	models.FundDebtToEquity:    0.7,
	models.FundROEPercent:      0.8,
	models.FundCurrentRatio:    0.7,
	models.FundOperatingMargin: 0.6,
	models.FundRevenueGrowth:   0.8,
	models.FundProfitMargin:    0.7,
	models.FundDividendYield:   0.5,
	models.FundBookValue:       0.6,
}

// Completeness is a 0-100 coverage score with its per-category
// breakdown and the list of fields that cost points.
type Completeness struct {
	OverallScore     float64  `json:"overall_score"`
	OHLCVScore       float64  `json:"ohlcv_score"`
	TechnicalScore   float64  `json:"technical_score"`
	FundamentalScore float64  `json:"fundamental_score"`
	MissingFields    []string `json:"missing_fields,omitempty"`
	Level            string   `json:"completeness_level"`
}

// Score calculates the completeness of one enriched record.
func Score(rec *models.EnrichedRecord) Completeness {
	var missing []string

	ohlcv, m := scoreOHLCV(rec)
	missing = append(missing, m...)

	technical, m := scoreWeighted(technicalImportance, func(field string) bool {
		_, ok := rec.TechnicalIndicators[field]
		return ok
	})
	missing = append(missing, m...)

	fundamental, m := scoreWeighted(fundamentalImportance, func(field string) bool {
		_, ok := rec.Fundamentals[field]
		return ok
	})
	missing = append(missing, m...)

	overall := ohlcv*weightOHLCV + technical*weightTechnical + fundamental*weightFundamentals

	return Completeness{
		OverallScore:     round2(overall),
		OHLCVScore:       round2(ohlcv),
		TechnicalScore:   round2(technical),
		FundamentalScore: round2(fundamental),
		MissingFields:    missing,
		Level:            level(overall),
	}
}

func scoreOHLCV(rec *models.EnrichedRecord) (float64, []string) {
	var missing []string
	// Volume is slightly less critical than the price fields.
	total := 4.0 + 0.8
	achieved := 0.0

	prices := []struct {
		name  string
		value float64
	}{
		{"open", rec.Open},
		{"high", rec.High},
		{"low", rec.Low},
		{"close", rec.Close},
	}
	for _, p := range prices {
		if p.value <= 0 {
			missing = append(missing, p.name)
		} else {
			achieved += 1.0
		}
	}
	if rec.Volume < 0 {
		missing = append(missing, "volume")
	} else {
		achieved += 0.8
	}

	return achieved / total * 100, missing
}

func scoreWeighted(importance map[string]float64, present func(string) bool) (float64, []string) {
	var (
		missing  []string
		total    float64
		achieved float64
	)

	fields := make([]string, 0, len(importance))
	for field := range importance {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		total += importance[field]
		if present(field) {
			achieved += importance[field]
		} else {
			missing = append(missing, field)
		}
	}
	return achieved / total * 100, missing
}

func level(score float64) string {
	switch {
	case score >= 95:
		return "excellent"
	case score >= 85:
		return "good"
	case score >= 70:
		return "fair"
	default:
		return "poor"
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BatchSummary aggregates completeness across a run.
type BatchSummary struct {
	Records      int            `json:"records"`
	AverageScore float64        `json:"average_score"`
	ByLevel      map[string]int `json:"by_level"`
}

// ScoreBatch scores every record and returns the run-level summary.
func ScoreBatch(records []*models.EnrichedRecord) BatchSummary {
	summary := BatchSummary{ByLevel: map[string]int{}}
	if len(records) == 0 {
		return summary
	}

	var sum float64
	for _, rec := range records {
		score := Score(rec)
		sum += score.OverallScore
		summary.ByLevel[score.Level]++
	}
	summary.Records = len(records)
	summary.AverageScore = round2(sum / float64(len(records)))
	return summary
}
