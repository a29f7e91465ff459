package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/queryviz/queryviz/internal/datasource"
	"github.com/queryviz/queryviz/internal/ingest"
	"github.com/queryviz/queryviz/internal/storage"
)

func handleLoadDataset(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Loader == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "INGEST_NOT_CONFIGURED", "dataset loader is not configured", false, nil)
		return
	}
	if err := requireRole(r, "analyst"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	table := strings.TrimSpace(r.PathValue("table"))
	if table == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "TABLE_REQUIRED", "table path parameter is required", false, nil)
		return
	}

	dbKey := dbKeyFromRequest(deps, r)
	if objectKey := strings.TrimSpace(r.URL.Query().Get("object_key")); objectKey != "" {
		result, err := deps.Loader.LoadFromObject(r.Context(), dbKey, table, objectKey)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				writeError(r.Context(), w, http.StatusNotFound, "OBJECT_NOT_FOUND", "object was not found in the store", false, map[string]any{"object_key": objectKey})
				return
			}
			writeError(r.Context(), w, http.StatusBadRequest, "DATASET_LOAD_FAILED", "failed to load dataset from object store", false, map[string]any{"details": err.Error()})
			return
		}
		writeLoadResult(w, dbKey, result)
		return
	}

	format := datasetFormat(r)
	if format == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "FORMAT_REQUIRED", "dataset format must be parquet or csv", false, nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, deps.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "dataset body exceeds the upload limit", false, map[string]any{"limit_bytes": tooLarge.Limit})
			return
		}
		writeError(r.Context(), w, http.StatusBadRequest, "BODY_READ_FAILED", "failed to read dataset body", false, map[string]any{"details": err.Error()})
		return
	}
	if len(body) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "BODY_REQUIRED", "dataset body is required", false, nil)
		return
	}

	result, err := deps.Loader.Load(r.Context(), dbKey, table, format, body)
	if err != nil {
		if errors.Is(err, datasource.ErrUnknownKey) {
			writeError(r.Context(), w, http.StatusNotFound, "SOURCE_NOT_FOUND", "data source is not registered", false, map[string]any{"db": dbKey})
			return
		}
		writeError(r.Context(), w, http.StatusBadRequest, "DATASET_LOAD_FAILED", "failed to load dataset", false, map[string]any{"details": err.Error()})
		return
	}
	writeLoadResult(w, dbKey, result)
}

func writeLoadResult(w http.ResponseWriter, dbKey string, result ingest.Result) {
	writeJSON(w, http.StatusOK, map[string]any{
		"db":         dbKey,
		"table":      result.Table,
		"columns":    result.Columns,
		"row_count":  result.RowCount,
		"object_key": result.ObjectKey,
	})
}

// datasetFormat resolves the upload format from the format query parameter,
// falling back to the Content-Type header.
func datasetFormat(r *http.Request) string {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	switch format {
	case "parquet", "csv":
		return format
	case "":
	default:
		return ""
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "text/csv":
		return "csv"
	case "application/vnd.apache.parquet", "application/x-parquet":
		return "parquet"
	}
	return ""
}
