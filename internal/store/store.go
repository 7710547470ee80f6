// Package store persists enriched records as one JSON file per
// ticker per calendar date, partitioned by ticker/year/month under
// the historical/daily tree.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/trogers1052/stock-enrichment-service/internal/models"
)

// ErrMalformed marks a stored record that fails to parse. The ticker
// is skipped and counted; the run continues.
var ErrMalformed = errors.New("malformed record")

// ErrNotFound marks a record file that does not exist.
var ErrNotFound = errors.New("record not found")

// WorkItem pairs a ticker with its record file for one date.
type WorkItem struct {
	Ticker string
	Path   string
}

// FileStore reads and writes enriched records under a base path.
type FileStore struct {
	basePath string
}

// NewFileStore creates a store rooted at basePath.
func NewFileStore(basePath string) *FileStore {
	return &FileStore{basePath: basePath}
}

// RecordPath returns the file path for a ticker and date:
// <base>/historical/daily/{TICKER}/{YYYY}/{MM}/{YYYY-MM-DD}.json
func (s *FileStore) RecordPath(ticker string, date time.Time) string {
	return filepath.Join(
		s.basePath, "historical", "daily",
		strings.ToUpper(ticker),
		date.Format("2006"), date.Format("01"),
		date.Format("2006-01-02")+".json",
	)
}

// Load reads one record. Returns ErrNotFound when the file does not
// exist and ErrMalformed when it cannot be parsed.
func (s *FileStore) Load(ticker string, date time.Time) (*models.EnrichedRecord, error) {
	return s.LoadPath(s.RecordPath(ticker, date))
}

// LoadPath reads one record from an explicit file path.
func (s *FileStore) LoadPath(path string) (*models.EnrichedRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read record %s: %w", path, err)
	}

	var rec models.EnrichedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return &rec, nil
}

// Save writes one record as a whole-file rewrite. The write goes to
// a temp file first and is renamed into place so a crash mid-write
// never leaves a truncated record behind.
func (s *FileStore) Save(rec *models.EnrichedRecord) error {
	date, err := time.Parse("2006-01-02", rec.Date)
	if err != nil {
		return fmt.Errorf("invalid record date %q: %w", rec.Date, err)
	}

	path := s.RecordPath(rec.Ticker, date)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize record write: %w", err)
	}
	return nil
}

// ListForDate walks the ticker directories and returns a work item
// for every ticker that has a record file on the given date, sorted
// by ticker.
func (s *FileStore) ListForDate(date time.Time) ([]WorkItem, error) {
	dailyDir := filepath.Join(s.basePath, "historical", "daily")
	entries, err := os.ReadDir(dailyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list ticker directories: %w", err)
	}

	var items []WorkItem
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ticker := entry.Name()
		path := s.RecordPath(ticker, date)
		if _, err := os.Stat(path); err == nil {
			items = append(items, WorkItem{Ticker: ticker, Path: path})
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Ticker < items[j].Ticker })
	return items, nil
}

// Tickers returns every ticker directory present in the store.
func (s *FileStore) Tickers() ([]string, error) {
	dailyDir := filepath.Join(s.basePath, "historical", "daily")
	entries, err := os.ReadDir(dailyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list ticker directories: %w", err)
	}

	var tickers []string
	for _, entry := range entries {
		if entry.IsDir() {
			tickers = append(tickers, entry.Name())
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}
