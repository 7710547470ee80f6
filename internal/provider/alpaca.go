package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

const barsTimeframe = "1Day"

// AlpacaClient loads daily bars from the Alpaca data API v2.
type AlpacaClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
	cooldown   time.Duration
}

// NewAlpacaClient creates a client for the Alpaca bars endpoint.
// cooldown is how long to wait after a throttled response before the
// single automatic retry.
func NewAlpacaClient(baseURL, apiKey, apiSecret string, timeout, cooldown time.Duration) *AlpacaClient {
	return &AlpacaClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		cooldown:   cooldown,
	}
}

type alpacaBar struct {
	Timestamp time.Time `json:"t"`
	Open      float64   `json:"o"`
	High      float64   `json:"h"`
	Low       float64   `json:"l"`
	Close     float64   `json:"c"`
	Volume    int64     `json:"v"`
}

type alpacaBarsResponse struct {
	Bars   []alpacaBar `json:"bars"`
	Symbol string      `json:"symbol"`
}

// LoadSeries fetches daily bars for ticker covering lookbackDays
// calendar days up to asOf. A throttled response triggers one
// cooldown-then-retry cycle; a second throttle, an empty result, or
// any structural error degrades to ErrNotAvailable.
func (c *AlpacaClient) LoadSeries(ctx context.Context, ticker string, asOf time.Time, lookbackDays int) ([]models.PriceBar, error) {
	start := asOf.AddDate(0, 0, -lookbackDays)

	// Bounded retry: one initial attempt plus one retry after the
	// rate-limit cooldown. Never recursive.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		bars, err := c.fetchBars(ctx, ticker, start, asOf)
		if err == nil {
			if len(bars) == 0 {
				return nil, fmt.Errorf("%w: no bars for %s", ErrNotAvailable, ticker)
			}
			return bars, nil
		}
		lastErr = err

		if !isRateLimited(err) || attempt == 1 {
			break
		}

		log.Printf("Rate limit hit for %s, cooling down %s before retry", ticker, c.cooldown)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cooldown):
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrNotAvailable, lastErr)
}

func (c *AlpacaClient) fetchBars(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	q := url.Values{}
	q.Set("timeframe", barsTimeframe)
	q.Set("start", start.Format("2006-01-02"))
	q.Set("end", end.Format("2006-01-02"))
	q.Set("adjustment", "raw")
	q.Set("limit", "10000")

	endpoint := fmt.Sprintf("%s/v2/stocks/%s/bars?%s", c.baseURL, url.PathEscape(ticker), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build bars request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bars request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, ticker)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bars request returned status %d", resp.StatusCode)
	}

	var body alpacaBarsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode bars response: %w", err)
	}

	bars := make([]models.PriceBar, 0, len(body.Bars))
	for _, b := range body.Bars {
		bars = append(bars, models.PriceBar{
			Date:   b.Timestamp.UTC().Truncate(24 * time.Hour),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}

	// The API returns ascending bars; enforce the ordering and drop
	// duplicate dates so downstream math sees a clean series.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	deduped := bars[:0]
	for i, b := range bars {
		if i > 0 && b.Date.Equal(bars[i-1].Date) {
			continue
		}
		deduped = append(deduped, b)
	}

	return deduped, nil
}

func isRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
