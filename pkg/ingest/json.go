package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// parseJSON parses the whole buffer as one JSON value. A top-level array
// yields one record per object element (non-object elements are skipped); a
// top-level object is wrapped as a one-record sequence. Columns are the keys
// of the first object element in document order. No schema is enforced across
// elements; later objects with different keys project partial records.
func parseJSON(ctx context.Context, buf []byte, maxRows int) ([]Record, []string, error) {
	trimmed := bytes.TrimSpace(buf)
	if len(trimmed) == 0 {
		return nil, nil, &ParseError{Format: FormatJSON, Err: errors.New("empty document")}
	}

	var elems []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, nil, &ParseError{Format: FormatJSON, Err: err}
		}
	case '{':
		if !json.Valid(trimmed) {
			return nil, nil, &ParseError{Format: FormatJSON, Err: errors.New("invalid JSON object")}
		}
		elems = []json.RawMessage{json.RawMessage(trimmed)}
	default:
		return nil, nil, &ParseError{Format: FormatJSON, Err: errors.New("top-level value must be an object or array")}
	}

	var (
		records []Record
		columns []string
	)
	for i, raw := range elems {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}

		elem := bytes.TrimSpace(raw)
		if len(elem) == 0 || elem[0] != '{' {
			continue // only object elements become records
		}

		// The bound is on records produced, so skipped elements don't count.
		if len(records) >= maxRows {
			return nil, nil, fmt.Errorf("%w: more than %d rows", ErrRowLimitExceeded, maxRows)
		}

		rec, err := decodeObject(elem)
		if err != nil {
			return nil, nil, &ParseError{Format: FormatJSON, Err: err}
		}
		if columns == nil {
			keys, err := objectKeys(elem)
			if err != nil {
				return nil, nil, &ParseError{Format: FormatJSON, Err: err}
			}
			columns = keys
		}
		records = append(records, rec)
	}

	if columns == nil {
		return nil, nil, &ParseError{Format: FormatJSON, Err: errors.New("no object elements to derive columns from")}
	}

	return records, columns, nil
}

// decodeObject unmarshals one object element, keeping numbers as json.Number
// so numeric literals survive re-encoding unchanged.
func decodeObject(raw []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// objectKeys returns the top-level keys of a JSON object in document order.
// Go maps do not preserve key order, so the order comes from a token scan.
func objectKeys(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token() // opening brace
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("not a JSON object")
	}

	cols := newColumnSet()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("malformed object key")
		}
		cols.add(key)

		// Skip the value, consuming nested structures whole.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return cols.names, nil
}
