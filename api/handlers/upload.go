package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/pointscape/pointscape/api/metrics"
	"github.com/pointscape/pointscape/pkg/ingest"
	"github.com/pointscape/pointscape/pkg/registry"
	"github.com/pointscape/pointscape/utils/pkg/retry"
)

// UploadResponse is the success body for POST /api/upload. Headers carry
// column discovery order; data carries the full parsed record set for the
// client to map onto render coordinates.
type UploadResponse struct {
	Success  bool            `json:"success"`
	Headers  []string        `json:"headers"`
	Data     []ingest.Record `json:"data"`
	Metadata UploadMetadata  `json:"metadata"`
	Warning  string          `json:"warning,omitempty"`
}

// UploadMetadata summarizes the stored artifact.
type UploadMetadata struct {
	Identifier  string `json:"identifier"`
	RowCount    int    `json:"rowCount"`
	ColumnCount int    `json:"columnCount"`
	FileSize    int    `json:"fileSize"`
	FileName    string `json:"fileName"`
}

// Upload ingests a multipart file field, persists the raw bytes and the
// derived metadata, and returns the parsed records. Validation and parse
// errors are terminal; a registry or blob write failure after a successful
// parse is non-fatal and surfaces as a warning, since the uploaded artifact
// was usable even if bookkeeping failed.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, header, err := r.FormFile("file")
	if err != nil {
		metrics.RecordUpload("", err)
		writeError(w, http.StatusBadRequest, "missing file field", err)
		return
	}
	defer file.Close()

	// Read one byte past the limit so oversize uploads are classified as
	// too-large instead of silently truncated.
	limits := h.Limits.WithDefaults()
	buf, err := io.ReadAll(io.LimitReader(file, int64(limits.MaxBytes)+1))
	if err != nil {
		metrics.RecordUpload("", err)
		writeError(w, http.StatusBadRequest, "failed to read upload", err)
		return
	}

	start := time.Now()
	ds, err := ingest.Ingest(ctx, buf, header.Filename, limits)
	metrics.RecordUpload(formatLabel(header.Filename), err)
	if err != nil {
		status, msg := ingestStatus(err)
		h.Log.Warn("upload rejected", "file", header.Filename, "size", len(buf), "error", err)
		writeError(w, status, msg, err)
		return
	}
	metrics.RecordIngest(time.Since(start), ds.RowCount)

	warning := h.persist(r, ds, buf)

	h.Log.Info("upload ingested",
		"identifier", ds.Identifier,
		"file", ds.OriginalName,
		"format", string(ds.DeclaredFormat),
		"rows", ds.RowCount,
		"columns", len(ds.Columns),
		"bytes", ds.ByteSize,
	)

	writeJSON(w, http.StatusOK, UploadResponse{
		Success: true,
		Headers: ds.Columns,
		Data:    ds.Records,
		Metadata: UploadMetadata{
			Identifier:  ds.Identifier,
			RowCount:    ds.RowCount,
			ColumnCount: len(ds.Columns),
			FileSize:    ds.ByteSize,
			FileName:    ds.OriginalName,
		},
		Warning: warning,
	})
}

// persist writes the blob and registry row for a successfully ingested
// dataset. Failures are reported, not fatal: the response still carries the
// parsed data.
func (h *Handlers) persist(r *http.Request, ds *ingest.Dataset, buf []byte) string {
	ctx := r.Context()

	if err := retry.Do(ctx, h.Retry, func() error {
		return h.Blobs.Put(ctx, ds.Identifier, buf)
	}); err != nil {
		h.Log.Error("blob write failed", "identifier", ds.Identifier, "error", err)
		return "dataset parsed but raw file storage failed; it will not be retrievable later"
	}

	summary, err := json.Marshal(registry.Summary{
		Columns:  ds.Columns,
		RowCount: ds.RowCount,
		Preview:  previewMaps(ds.Preview),
		Format:   string(ds.DeclaredFormat),
	})
	if err != nil {
		h.Log.Error("summary encode failed", "identifier", ds.Identifier, "error", err)
		return "dataset parsed but metadata could not be encoded"
	}

	if err := retry.Do(ctx, h.Retry, func() error {
		return h.Registry.Save(ctx, registry.Meta{
			Identifier:   ds.Identifier,
			OriginalName: ds.OriginalName,
			ByteSize:     int64(ds.ByteSize),
			MIMEType:     ds.MIMEType,
			Metadata:     summary,
		})
	}); err != nil {
		h.Log.Error("registry write failed", "identifier", ds.Identifier, "error", err)
		return "dataset parsed but metadata persistence failed"
	}

	return ""
}

func previewMaps(records []ingest.Record) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, rec := range records {
		out[i] = map[string]any(rec)
	}
	return out
}

func formatLabel(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	default:
		return "unknown"
	}
}
