package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/trogers1052/stock-enrichment-service/internal/models"
	"github.com/trogers1052/stock-enrichment-service/internal/pipeline"
	"github.com/trogers1052/stock-enrichment-service/internal/store"
	"github.com/trogers1052/stock-enrichment-service/internal/validate"
)

// IndicatorStore reads mirrored values back out of the relational
// sink. A nil store means the sink is disabled.
type IndicatorStore interface {
	GetIndicatorHistory(symbol string, indicatorType string, limit int) ([]*models.TechnicalIndicator, error)
	GetPriceDataRange(symbol string, startDate, endDate time.Time) ([]*models.PriceDataDaily, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	pipeline *pipeline.Pipeline
	store    *store.FileStore
	sink     IndicatorStore
}

// NewHandler creates a new Handler
func NewHandler(p *pipeline.Pipeline, s *store.FileStore, sink IndicatorStore) *Handler {
	return &Handler{
		pipeline: p,
		store:    s,
		sink:     sink,
	}
}

// Enrich handles POST /api/v1/enrich. With a ticker list it enriches
// only those tickers; without one it runs the whole date.
func (h *Handler) Enrich(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date    string   `json:"date"`
		Tickers []string `json:"tickers"`
		DryRun  bool     `json:"dry_run"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		var err error
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	var (
		res models.Result
		err error
	)
	if len(req.Tickers) > 0 {
		tickers := make([]string, 0, len(req.Tickers))
		for _, t := range req.Tickers {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t == "" {
				http.Error(w, "tickers must not be blank", http.StatusBadRequest)
				return
			}
			tickers = append(tickers, t)
		}
		res, err = h.pipeline.RunForTickers(r.Context(), tickers, date)
	} else {
		res, err = h.pipeline.RunForDate(r.Context(), date)
	}
	if err != nil {
		log.Printf("Enrichment run failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// GetRecord handles GET /api/v1/records/{symbol}. The date query
// parameter defaults to today.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol := strings.ToUpper(vars["symbol"])

	date := time.Now().UTC()
	if q := r.URL.Query().Get("date"); q != "" {
		var err error
		date, err = time.Parse("2006-01-02", q)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	rec, err := h.store.Load(symbol, date)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// GetRecordQuality handles GET /api/v1/records/{symbol}/quality. It
// returns the bound-violation report and completeness score for one
// stored record.
func (h *Handler) GetRecordQuality(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	symbol := strings.ToUpper(vars["symbol"])

	date := time.Now().UTC()
	if q := r.URL.Query().Get("date"); q != "" {
		var err error
		date, err = time.Parse("2006-01-02", q)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	rec, err := h.store.Load(symbol, date)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, struct {
		Validation   validate.Report       `json:"validation"`
		Completeness validate.Completeness `json:"completeness"`
	}{
		Validation:   validate.ValidateRecord(rec),
		Completeness: validate.Score(rec),
	})
}

// GetIndicatorHistory handles GET /api/v1/indicators/{symbol}/{type}.
// It reads from the relational sink, so it is only available when the
// sink is enabled.
func (h *Handler) GetIndicatorHistory(w http.ResponseWriter, r *http.Request) {
	if h.sink == nil {
		http.Error(w, "indicator sink is not enabled", http.StatusServiceUnavailable)
		return
	}

	vars := mux.Vars(r)
	symbol := strings.ToUpper(vars["symbol"])
	indicatorType := vars["type"]

	limit := 30
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	history, err := h.sink.GetIndicatorHistory(symbol, indicatorType, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// GetPriceRange handles GET /api/v1/prices/{symbol}. start and end
// query parameters bound the range; end defaults to today.
func (h *Handler) GetPriceRange(w http.ResponseWriter, r *http.Request) {
	if h.sink == nil {
		http.Error(w, "indicator sink is not enabled", http.StatusServiceUnavailable)
		return
	}

	vars := mux.Vars(r)
	symbol := strings.ToUpper(vars["symbol"])

	start, err := time.Parse("2006-01-02", r.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, "start must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	end := time.Now().UTC()
	if q := r.URL.Query().Get("end"); q != "" {
		end, err = time.Parse("2006-01-02", q)
		if err != nil {
			http.Error(w, "end must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	prices, err := h.sink.GetPriceDataRange(symbol, start, end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, prices)
}

// GetLatestRun handles GET /api/v1/runs/latest
func (h *Handler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	res, ok := h.pipeline.LastResult()
	if !ok {
		http.Error(w, "no enrichment run has completed yet", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
