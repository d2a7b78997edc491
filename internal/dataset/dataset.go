// internal/dataset/dataset.go
// Package dataset loads tabular test data for data-driven scenarios. The first
// row of a CSV file names the columns; every following row becomes one Record.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	ErrNoHeader        = errors.New("dataset has no header row")
	ErrInvalidHeader   = errors.New("invalid dataset header")
	ErrTooManyFields   = errors.New("row has more fields than the header")
	ErrMissingDataFile = errors.New("data file not set")
)

// Record is one data row keyed by column name.
type Record map[string]string

// Get returns the trimmed value of column name.
func (r Record) Get(name string) string {
	return strings.TrimSpace(r[name])
}

// Filter selects rows. A nil Filter keeps every row.
type Filter func(Record) bool

// Where keeps rows whose column equals value, ignoring case.
func Where(column, value string) Filter {
	return func(r Record) bool {
		return strings.EqualFold(r.Get(column), strings.TrimSpace(value))
	}
}

// Load reads the CSV file at path.
func Load(path string, filter Filter) ([]Record, error) {
	if path == "" {
		return nil, ErrMissingDataFile
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	records, err := Read(f, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return records, nil
}

// Read parses CSV from r. Rows shorter than the header are padded with empty
// values; longer rows are an error. Lines starting with '#' are ignored.
func Read(r io.Reader, filter Filter) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	records := []Record{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(row) > len(columns) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w (%d > %d)", line, ErrTooManyFields, len(row), len(columns))
		}

		rec := make(Record, len(columns))
		for i, col := range columns {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		if filter == nil || filter(rec) {
			records = append(records, rec)
		}
	}
	return records, nil
}

func parseHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrInvalidHeader, i+1)
		}
		if _, dup := seen[h]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidHeader, h)
		}
		seen[h] = struct{}{}
		columns[i] = h
	}
	return columns, nil
}
