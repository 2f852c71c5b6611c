package feed

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fintech_reviews/internal/domain"
)

var ErrUnknownFormat = errors.New("unknown input format")

// ReadFile loads raw records from a .csv, .json (array) or .jsonl/.ndjson file.
func ReadFile(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".json":
		return ReadJSON(f)
	case ".jsonl", ".ndjson":
		return ReadJSONLines(f)
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// ReadCSV reads a headed CSV. Every cell becomes a string field named by its column;
// empty cells are kept so blank fields stay distinguishable from missing ones.
func ReadCSV(r io.Reader) ([]domain.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var out []domain.RawRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read csv line %d: %w", line, err)
		}
		rec := make(domain.RawRecord, len(header))
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			rec[h] = row[i]
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadJSON reads a JSON array of objects.
func ReadJSON(r io.Reader) ([]domain.RawRecord, error) {
	var out []domain.RawRecord
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode json array: %w", err)
	}
	return out, nil
}

// ReadJSONLines reads one object per line, skipping blank lines.
func ReadJSONLines(r io.Reader) ([]domain.RawRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var out []domain.RawRecord
	for line := 1; sc.Scan(); line++ {
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var rec domain.RawRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return out, fmt.Errorf("decode json line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
