package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-enrichment-service/internal/batch"
	"github.com/trogers1052/stock-enrichment-service/internal/enricher"
	"github.com/trogers1052/stock-enrichment-service/internal/models"
	"github.com/trogers1052/stock-enrichment-service/internal/pipeline"
	"github.com/trogers1052/stock-enrichment-service/internal/store"
)

type stubLoader struct{}

func (stubLoader) LoadSeries(ctx context.Context, ticker string, asOf time.Time, lookbackDays int) ([]models.PriceBar, error) {
	start := asOf.AddDate(0, 0, -lookbackDays)
	bars := make([]models.PriceBar, 60)
	for i := range bars {
		c := 50.0 + float64(i)
		bars[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 2000}
	}
	return bars, nil
}

type fakeSink struct {
	history []*models.TechnicalIndicator
	prices  []*models.PriceDataDaily
	err     error
}

func (f *fakeSink) GetIndicatorHistory(symbol string, indicatorType string, limit int) ([]*models.TechnicalIndicator, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.history) {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeSink) GetPriceDataRange(symbol string, startDate, endDate time.Time) ([]*models.PriceDataDaily, error) {
	return f.prices, f.err
}

func newTestServer(t *testing.T, sink IndicatorStore) (*httptest.Server, *store.FileStore) {
	t.Helper()
	s := store.NewFileStore(t.TempDir())
	counting := batch.NewCountingLoader(stubLoader{})
	e := enricher.New(counting, nil, 5, 70, "alpaca")
	d := batch.NewDriver(s, e, counting, nil, nil, batch.Options{BatchSize: 10, Workers: 2, Threshold: 5})
	p := pipeline.New(s, e, d)

	srv := httptest.NewServer(SetupRoutes(NewHandler(p, s, sink)))
	t.Cleanup(srv.Close)
	return srv, s
}

func seedRecord(t *testing.T, s *store.FileStore, ticker, date string) {
	t.Helper()
	require.NoError(t, s.Save(&models.EnrichedRecord{
		Ticker: ticker, Date: date,
		Open: 100, High: 102, Low: 99, Close: 101, Volume: 5000,
	}))
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestEnrich(t *testing.T) {
	t.Run("runs a full date", func(t *testing.T) {
		srv, s := newTestServer(t, nil)
		seedRecord(t, s, "AAPL", "2025-09-18")
		seedRecord(t, s, "MSFT", "2025-09-18")

		resp, err := http.Post(srv.URL+"/api/v1/enrich", "application/json",
			strings.NewReader(`{"date":"2025-09-18"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var res models.Result
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, 2, res.TotalSeen)
		assert.Equal(t, 2, res.Enriched)
	})

	t.Run("runs only the requested tickers", func(t *testing.T) {
		srv, s := newTestServer(t, nil)
		seedRecord(t, s, "AAPL", "2025-09-18")
		seedRecord(t, s, "MSFT", "2025-09-18")

		resp, err := http.Post(srv.URL+"/api/v1/enrich", "application/json",
			strings.NewReader(`{"date":"2025-09-18","tickers":["aapl"]}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var res models.Result
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, 1, res.TotalSeen)
		assert.Equal(t, 1, res.Enriched)
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		resp, err := http.Post(srv.URL+"/api/v1/enrich", "application/json", strings.NewReader("{broken"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects an invalid date", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		resp, err := http.Post(srv.URL+"/api/v1/enrich", "application/json",
			strings.NewReader(`{"date":"Sept 18"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects a blank ticker", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		resp, err := http.Post(srv.URL+"/api/v1/enrich", "application/json",
			strings.NewReader(`{"date":"2025-09-18","tickers":["  "]}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetRecord(t *testing.T) {
	t.Run("returns a stored record", func(t *testing.T) {
		srv, s := newTestServer(t, nil)
		seedRecord(t, s, "AAPL", "2025-09-18")

		resp, err := http.Get(srv.URL + "/api/v1/records/aapl?date=2025-09-18")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var rec models.EnrichedRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
		assert.Equal(t, "AAPL", rec.Ticker)
		assert.Equal(t, 101.0, rec.Close)
	})

	t.Run("unknown record is 404", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		resp, err := http.Get(srv.URL + "/api/v1/records/GONE?date=2025-09-18")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid date query is 400", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		resp, err := http.Get(srv.URL + "/api/v1/records/AAPL?date=notadate")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetRecordQuality(t *testing.T) {
	srv, s := newTestServer(t, nil)
	seedRecord(t, s, "AAPL", "2025-09-18")

	resp, err := http.Post(srv.URL+"/api/v1/enrich", "application/json",
		strings.NewReader(`{"date":"2025-09-18"}`))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/v1/records/AAPL/quality?date=2025-09-18")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Validation struct {
			Valid bool `json:"valid"`
		} `json:"validation"`
		Completeness struct {
			OverallScore float64 `json:"overall_score"`
			Level        string  `json:"completeness_level"`
		} `json:"completeness"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Validation.Valid)
	assert.Greater(t, body.Completeness.OverallScore, 0.0)
	assert.NotEmpty(t, body.Completeness.Level)
}

func TestGetIndicatorHistory(t *testing.T) {
	date := time.Date(2025, 9, 18, 0, 0, 0, 0, time.UTC)
	sink := &fakeSink{history: []*models.TechnicalIndicator{
		{Symbol: "AAPL", Date: date, IndicatorType: models.IndicatorRSI},
		{Symbol: "AAPL", Date: date.AddDate(0, 0, -1), IndicatorType: models.IndicatorRSI},
	}}

	t.Run("returns history from the sink", func(t *testing.T) {
		srv, _ := newTestServer(t, sink)
		resp, err := http.Get(srv.URL + "/api/v1/indicators/aapl/rsi")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var history []models.TechnicalIndicator
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
		assert.Len(t, history, 2)
		assert.Equal(t, models.IndicatorRSI, history[0].IndicatorType)
	})

	t.Run("limit trims the history", func(t *testing.T) {
		srv, _ := newTestServer(t, sink)
		resp, err := http.Get(srv.URL + "/api/v1/indicators/AAPL/rsi?limit=1")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var history []models.TechnicalIndicator
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
		assert.Len(t, history, 1)
	})

	t.Run("invalid limit is 400", func(t *testing.T) {
		srv, _ := newTestServer(t, sink)
		resp, err := http.Get(srv.URL + "/api/v1/indicators/AAPL/rsi?limit=zero")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("disabled sink is 503", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		resp, err := http.Get(srv.URL + "/api/v1/indicators/AAPL/rsi")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestGetPriceRange(t *testing.T) {
	sink := &fakeSink{prices: []*models.PriceDataDaily{
		{Symbol: "AAPL", Date: time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC)},
		{Symbol: "AAPL", Date: time.Date(2025, 9, 18, 0, 0, 0, 0, time.UTC)},
	}}

	t.Run("returns the range from the sink", func(t *testing.T) {
		srv, _ := newTestServer(t, sink)
		resp, err := http.Get(srv.URL + "/api/v1/prices/aapl?start=2025-09-17&end=2025-09-18")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var prices []models.PriceDataDaily
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&prices))
		assert.Len(t, prices, 2)
	})

	t.Run("missing start is 400", func(t *testing.T) {
		srv, _ := newTestServer(t, sink)
		resp, err := http.Get(srv.URL + "/api/v1/prices/AAPL")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("disabled sink is 503", func(t *testing.T) {
		srv, _ := newTestServer(t, nil)
		resp, err := http.Get(srv.URL + "/api/v1/prices/AAPL?start=2025-09-17")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestGetLatestRun(t *testing.T) {
	srv, s := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/v1/runs/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	seedRecord(t, s, "AAPL", "2025-09-18")
	resp, err = http.Post(srv.URL+"/api/v1/enrich", "application/json",
		strings.NewReader(`{"date":"2025-09-18"}`))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/v1/runs/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res models.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 1, res.Enriched)
}
