package csv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Record is one CSV row keyed by header name.
type Record map[string]string

// Get returns the trimmed value of column.
func (r Record) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// ParseRecords parses CSV content with a header line into records. Blank
// rows are skipped, short rows leave the missing columns empty. Columns
// listed in required must be present in the header.
func ParseRecords(content []byte, required ...string) ([]Record, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	for _, col := range required {
		if !containsColumn(header, col) {
			return nil, fmt.Errorf("CSV header misses column %q", col)
		}
	}

	var records []Record
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		if isEmpty(row) {
			continue
		}

		rec := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

func containsColumn(header []string, col string) bool {
	for _, h := range header {
		if h == col {
			return true
		}
	}
	return false
}

func isEmpty(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
