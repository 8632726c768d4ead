package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pointscape/pointscape/pkg/ingest"
	"github.com/pointscape/pointscape/pkg/registry"
)

// ErrorResponse is the JSON body for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// ingestStatus maps the ingestion error taxonomy onto HTTP statuses. Every
// kind gets its own status so clients never see a generic failure for a
// classified problem.
func ingestStatus(err error) (int, string) {
	var parseErr *ingest.ParseError
	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported file format"
	case errors.Is(err, ingest.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "file too large"
	case errors.Is(err, ingest.ErrRowLimitExceeded):
		return http.StatusUnprocessableEntity, "row limit exceeded"
	case errors.Is(err, ingest.ErrEmptyDataset):
		return http.StatusUnprocessableEntity, "dataset is empty"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "request cancelled"
	case errors.As(err, &parseErr):
		return http.StatusBadRequest, "failed to parse file"
	default:
		return http.StatusInternalServerError, "ingestion failed"
	}
}

func writeRegistryError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, registry.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFoundMsg, nil)
		return
	}
	writeError(w, http.StatusInternalServerError, "registry unavailable", err)
}
