// Package blob stores raw uploaded bytes keyed by the same identifier used
// in the dataset registry. The ingestion core only ever sees byte buffers;
// the storage medium is this package's concern.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no blob exists for an identifier.
var ErrNotFound = errors.New("blob not found")

// Store persists uploaded byte buffers. Implementations must be safe for
// concurrent use.
type Store interface {
	Put(ctx context.Context, identifier string, data []byte) error
	Get(ctx context.Context, identifier string) ([]byte, error)
	Delete(ctx context.Context, identifier string) error
}
