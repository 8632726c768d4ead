// Package handlers implements the HTTP surface of the Pointscape API.
package handlers

import (
	"log/slog"

	"github.com/pointscape/pointscape/pkg/blob"
	"github.com/pointscape/pointscape/pkg/ingest"
	"github.com/pointscape/pointscape/pkg/registry"
	"github.com/pointscape/pointscape/utils/pkg/retry"
)

// Handlers carries the collaborators every endpoint needs. The ingestion
// pipeline itself is stateless; everything mutable lives behind the registry
// and blob store.
type Handlers struct {
	Log      *slog.Logger
	Registry registry.Registry
	Blobs    blob.Store
	Limits   ingest.Limits
	Retry    retry.Config
}

// New wires the shared handler set. Limits are normalized here so the
// upload body cap and the parser bounds always agree.
func New(log *slog.Logger, reg registry.Registry, blobs blob.Store, limits ingest.Limits) *Handlers {
	return &Handlers{
		Log:      log,
		Registry: reg,
		Blobs:    blobs,
		Limits:   limits.WithDefaults(),
		Retry:    retry.DefaultConfig(),
	}
}
