package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// parseCSV stream-parses buf with the header row as column names. Values stay
// raw strings; whitespace is trimmed from names and values; blank lines are
// skipped. Ragged rows are tolerated: extra positional fields beyond the
// header are folded into the column set in discovery order under synthesized
// names. Exceeding maxRows aborts the whole parse.
func parseCSV(ctx context.Context, buf []byte, maxRows int) ([]Record, []string, error) {
	r := csv.NewReader(bytes.NewReader(buf))
	r.FieldsPerRecord = -1 // ragged rows are handled below, not rejected
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrEmptyDataset
		}
		return nil, nil, &ParseError{Format: FormatCSV, Line: 1, Err: err}
	}

	cols := newColumnSet()
	headerNames := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = extraColumnName(i)
		}
		headerNames[i] = name
		cols.add(name)
	}

	var records []Record
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, nil, &ParseError{Format: FormatCSV, Line: line, Err: err}
		}
		if isBlankRow(fields) {
			continue
		}

		if len(records) >= maxRows {
			return nil, nil, fmt.Errorf("%w: more than %d rows", ErrRowLimitExceeded, maxRows)
		}

		rec := make(Record, len(fields))
		for i, v := range fields {
			var name string
			if i < len(headerNames) {
				name = headerNames[i]
			} else {
				// Malformed row with more fields than the header. The extra
				// values are kept and their synthesized names folded into the
				// column set rather than dropped.
				name = extraColumnName(i)
				cols.add(name)
			}
			rec[name] = strings.TrimSpace(v)
		}
		records = append(records, rec)
	}

	return records, cols.names, nil
}

func extraColumnName(index int) string {
	return fmt.Sprintf("column_%d", index+1)
}

func isBlankRow(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
