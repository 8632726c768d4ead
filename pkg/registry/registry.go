// Package registry stores dataset metadata keyed by identifier. The core
// treats it as an opaque key/value store; last-writer-wins is acceptable for
// metadata overwrite.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no dataset exists for an identifier.
var ErrNotFound = errors.New("dataset not found")

// Meta is the stored metadata for one ingested dataset. Full records are not
// persisted here; Metadata carries the derived summary (columns, rowCount,
// preview) as JSON.
type Meta struct {
	Identifier   string          `json:"identifier"`
	OriginalName string          `json:"originalName"`
	ByteSize     int64           `json:"byteSize"`
	MIMEType     string          `json:"mimeType"`
	Metadata     json.RawMessage `json:"metadata"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Page is one page of a dataset listing.
type Page struct {
	Datasets []Meta `json:"datasets"`
	Total    int    `json:"total"`
}

// Registry is the dataset metadata store. Implementations must be safe for
// concurrent use.
type Registry interface {
	// Save upserts metadata for an identifier.
	Save(ctx context.Context, meta Meta) error
	// List returns a page of datasets, newest first, plus the total count.
	List(ctx context.Context, limit, offset int) (Page, error)
	// Get returns the metadata for an identifier, or ErrNotFound.
	Get(ctx context.Context, identifier string) (*Meta, error)
	// Delete removes the metadata for an identifier, or ErrNotFound.
	Delete(ctx context.Context, identifier string) error
}

// Summary is the derived dataset summary held in Meta.Metadata.
type Summary struct {
	Columns  []string         `json:"columns"`
	RowCount int              `json:"rowCount"`
	Preview  []map[string]any `json:"preview"`
	Format   string           `json:"format"`
}
