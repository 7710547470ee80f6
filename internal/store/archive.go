package store

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ArchiveMonth compresses one month of daily records for a ticker
// into <base>/compressed/{TICKER}/{YYYY}/{MM}.gz. Records are packed
// as a JSON array in chronological order; the filename layout
// (YYYY-MM-DD) makes a lexical sort chronological. Returns the number
// of records archived; zero with a nil error means there was nothing
// to archive.
func (s *FileStore) ArchiveMonth(ticker, year, month string) (int, error) {
	ticker = strings.ToUpper(ticker)
	sourceDir := filepath.Join(s.basePath, "historical", "daily", ticker, year, month)

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read month directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return 0, nil
	}
	sort.Strings(names)

	var records []json.RawMessage
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(sourceDir, name))
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if !json.Valid(data) {
			return 0, fmt.Errorf("%w: %s", ErrMalformed, name)
		}
		records = append(records, json.RawMessage(data))
	}

	targetDir := filepath.Join(s.basePath, "compressed", ticker, year)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create archive directory: %w", err)
	}
	targetPath := filepath.Join(targetDir, month+".gz")

	packed, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("failed to pack monthly records: %w", err)
	}

	tmp := targetPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(packed); err != nil {
		gz.Close()
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to compress monthly records: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Rename(tmp, targetPath); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return len(records), nil
}
