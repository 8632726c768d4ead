package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pointscape/pointscape/pkg/blob"
	"github.com/pointscape/pointscape/pkg/ingest"
	"github.com/pointscape/pointscape/pkg/scale"
)

// DefaultHalfRange is the default symmetric viewport half-extent the axis
// scales target, matching the front-end scene dimensions.
const DefaultHalfRange = 10

// ScalesResponse carries one render-ready scale per requested channel.
type ScalesResponse struct {
	Identifier string               `json:"identifier"`
	Scales     map[string]ScaleInfo `json:"scales"`
}

// ScaleInfo is a computed scale plus how many numeric samples backed it.
type ScaleInfo struct {
	Column  string      `json:"column"`
	Samples int         `json:"samples"`
	Scale   scale.Scale `json:"scale"`
}

// DatasetScales recomputes the numeric projection of the requested columns
// from the stored blob and returns the axis scales the renderer should use.
// Query parameters x, y and z name axis columns; size names the size
// channel; halfRange overrides the viewport half-extent.
func (h *Handlers) DatasetScales(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	ctx := r.Context()

	q := r.URL.Query()
	axes := map[string]string{}
	for _, ch := range []string{"x", "y", "z", "size"} {
		if col := q.Get(ch); col != "" {
			axes[ch] = col
		}
	}
	if len(axes) == 0 {
		writeError(w, http.StatusBadRequest, "at least one of x, y, z, size is required", nil)
		return
	}

	halfRange := float64(DefaultHalfRange)
	if hr := q.Get("halfRange"); hr != "" {
		parsed, err := strconv.ParseFloat(hr, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "halfRange must be a positive number", err)
			return
		}
		halfRange = parsed
	}

	meta, err := h.Registry.Get(ctx, identifier)
	if err != nil {
		writeRegistryError(w, err, "dataset not found")
		return
	}

	data, err := h.Blobs.Get(ctx, identifier)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeError(w, http.StatusNotFound, "stored file not found", nil)
			return
		}
		h.Log.Error("blob read failed", "identifier", identifier, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read stored file", err)
		return
	}

	// Re-ingest under the same limits as the original upload. The blob was
	// accepted once, so failures here mean the stored artifact is corrupt.
	ds, err := ingest.Ingest(ctx, data, meta.OriginalName, h.Limits)
	if err != nil {
		h.Log.Error("stored file re-parse failed", "identifier", identifier, "error", err)
		writeError(w, http.StatusInternalServerError, "stored file is not parseable", err)
		return
	}

	known := make(map[string]struct{}, len(ds.Columns))
	for _, c := range ds.Columns {
		known[c] = struct{}{}
	}

	scales := make(map[string]ScaleInfo, len(axes))
	for ch, col := range axes {
		if _, ok := known[col]; !ok {
			writeError(w, http.StatusBadRequest, "unknown column "+strconv.Quote(col), nil)
			return
		}
		samples := scale.Project(ds.Records, col)
		var s scale.Scale
		if ch == "size" {
			s = scale.ComputeSize(samples, scale.DefaultSizeMin, scale.DefaultSizeMax)
		} else {
			s = scale.Compute(samples, halfRange)
		}
		scales[ch] = ScaleInfo{Column: col, Samples: len(samples), Scale: s}
	}

	writeJSON(w, http.StatusOK, ScalesResponse{Identifier: identifier, Scales: scales})
}
