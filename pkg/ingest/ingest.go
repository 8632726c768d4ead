// Package ingest turns an uploaded byte buffer of declared type into a
// validated, bounded, columnar record set with derived metadata.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Format is the declared upload format, derived from the filename extension.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

const (
	// DefaultMaxBytes bounds the accepted upload size.
	DefaultMaxBytes = 50 << 20 // 50 MiB

	// DefaultMaxRows bounds the number of records one upload may produce.
	// Downstream rendering allocates per-record geometry, so unbounded
	// ingestion is a resource-exhaustion vector.
	DefaultMaxRows = 100_000

	// PreviewRows is the number of leading records kept as the preview.
	PreviewRows = 5
)

// Limits bounds a single ingestion call.
type Limits struct {
	MaxBytes int
	MaxRows  int
}

// DefaultLimits returns the default ingestion bounds.
func DefaultLimits() Limits {
	return Limits{MaxBytes: DefaultMaxBytes, MaxRows: DefaultMaxRows}
}

// WithDefaults fills non-positive bounds with the defaults. Callers that
// enforce MaxBytes themselves (request body caps) must normalize first so
// their cap and the parser's agree.
func (l Limits) WithDefaults() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxBytes
	}
	if l.MaxRows <= 0 {
		l.MaxRows = DefaultMaxRows
	}
	return l
}

// Record is one parsed row or object: column name to scalar value
// (string, number, bool or nil).
type Record map[string]any

// Dataset is the result of one successful ingestion. It is owned by the
// caller for the duration of the request; everything but Records may be
// handed to the registry for longer-lived storage.
type Dataset struct {
	Identifier     string
	OriginalName   string
	DeclaredFormat Format
	ByteSize       int
	MIMEType       string
	Columns        []string
	RowCount       int
	Preview        []Record
	Records        []Record
}

// Ingest validates buf against limits, parses it according to the declared
// filename's extension, and returns the resulting Dataset. It has no side
// effects; persistence and blob cleanup belong to the caller. Parsing stops
// promptly if ctx is cancelled and no partial Dataset is returned.
func Ingest(ctx context.Context, buf []byte, declaredFilename string, limits Limits) (*Dataset, error) {
	limits = limits.WithDefaults()

	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrUnsupportedFormat)
	}
	format, mimeType, err := detectFormat(declaredFilename)
	if err != nil {
		return nil, err
	}
	if len(buf) > limits.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(buf), limits.MaxBytes)
	}

	var (
		records []Record
		columns []string
	)
	switch format {
	case FormatCSV:
		records, columns, err = parseCSV(ctx, buf, limits.MaxRows)
	case FormatJSON:
		records, columns, err = parseJSON(ctx, buf, limits.MaxRows)
	}
	if err != nil {
		return nil, err
	}

	if len(records) == 0 || len(columns) == 0 {
		return nil, ErrEmptyDataset
	}

	preview := records
	if len(preview) > PreviewRows {
		preview = preview[:PreviewRows]
	}

	return &Dataset{
		Identifier:     NewIdentifier(declaredFilename),
		OriginalName:   declaredFilename,
		DeclaredFormat: format,
		ByteSize:       len(buf),
		MIMEType:       mimeType,
		Columns:        columns,
		RowCount:       len(records),
		Preview:        preview,
		Records:        records,
	}, nil
}

// detectFormat maps the filename extension to a Format, case-insensitively.
func detectFormat(filename string) (Format, string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, "text/csv", nil
	case ".json":
		return FormatJSON, "application/json", nil
	default:
		return "", "", fmt.Errorf("%w: %q (want .csv or .json)", ErrUnsupportedFormat, filename)
	}
}

// NewIdentifier derives a stable, collision-safe identifier for a stored
// artifact: timestamp + random suffix + sanitized original name.
func NewIdentifier(originalName string) string {
	base := strings.TrimSuffix(filepath.Base(originalName), filepath.Ext(originalName))
	base = sanitizeName(base)
	if base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%d-%s-%s", time.Now().UTC().UnixMilli(), uuid.NewString()[:8], base)
}

// sanitizeName keeps identifiers filesystem- and URL-safe.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// columnSet tracks column names in first-seen order. The order invariant is
// preserve-on-first-sight across the full record set, not per record.
type columnSet struct {
	names []string
	seen  map[string]struct{}
}

func newColumnSet() *columnSet {
	return &columnSet{seen: make(map[string]struct{})}
}

func (c *columnSet) add(name string) {
	if _, ok := c.seen[name]; ok {
		return
	}
	c.seen[name] = struct{}{}
	c.names = append(c.names, name)
}
