package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pointscape/pointscape/pkg/blob"
	"github.com/pointscape/pointscape/pkg/registry"
)

// ListResponse is the body for GET /api/files.
type ListResponse struct {
	Files  []registry.Meta `json:"files"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// ListDatasets returns a paginated listing of stored dataset metadata,
// newest first. Reads go through the registry cache when one is configured.
func (h *Handlers) ListDatasets(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r, DefaultLimit)

	page, err := h.Registry.List(r.Context(), p.Limit, p.Offset)
	if err != nil {
		h.Log.Error("list datasets failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list datasets", err)
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Files:  page.Datasets,
		Total:  page.Total,
		Limit:  p.Limit,
		Offset: p.Offset,
	})
}

// GetDataset returns the stored metadata for one identifier.
func (h *Handlers) GetDataset(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	meta, err := h.Registry.Get(r.Context(), identifier)
	if err != nil {
		if !errors.Is(err, registry.ErrNotFound) {
			h.Log.Error("get dataset failed", "identifier", identifier, "error", err)
		}
		writeRegistryError(w, err, "dataset not found")
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

// DeleteDataset removes the registry row and, best effort, the stored blob.
func (h *Handlers) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	ctx := r.Context()

	if err := h.Registry.Delete(ctx, identifier); err != nil {
		if !errors.Is(err, registry.ErrNotFound) {
			h.Log.Error("delete dataset failed", "identifier", identifier, "error", err)
		}
		writeRegistryError(w, err, "dataset not found")
		return
	}

	if err := h.Blobs.Delete(ctx, identifier); err != nil && !errors.Is(err, blob.ErrNotFound) {
		// Metadata is gone; an orphaned blob is not worth failing the request.
		h.Log.Warn("blob delete failed", "identifier", identifier, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}
