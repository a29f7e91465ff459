package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/queryviz/queryviz/internal/artifact"
	"github.com/queryviz/queryviz/internal/datasource"
	"github.com/queryviz/queryviz/internal/toolkit"
)

type saveQueryRequest struct {
	SessionID string `json:"session_id"`
	DB        string `json:"db"`
	SQL       string `json:"sql"`
}

func handleSaveQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Toolkit == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TOOLKIT_NOT_CONFIGURED", "data toolkit is not configured", false, nil)
		return
	}
	if err := requireRole(r, "analyst"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request saveQueryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid save query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SessionID) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_REQUIRED", "session_id is required", false, nil)
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	dbKey := request.DB
	if dbKey == "" {
		dbKey = deps.DefaultDBKey
	}

	queryID, err := deps.Toolkit.SaveQuery(r.Context(), request.SessionID, dbKey, request.SQL)
	if err != nil {
		switch {
		case errors.Is(err, datasource.ErrUnknownKey):
			writeError(r.Context(), w, http.StatusNotFound, "SOURCE_NOT_FOUND", "data source is not registered", false, map[string]any{"db": dbKey})
		case errors.Is(err, datasource.ErrNotReadOnly):
			writeError(r.Context(), w, http.StatusBadRequest, "SQL_NOT_ALLOWED", "only read-only SELECT/WITH queries can be saved", false, nil)
		default:
			writeError(r.Context(), w, http.StatusInternalServerError, "SAVE_QUERY_FAILED", "failed to save query", true, map[string]any{"details": err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": request.SessionID,
		"query_id":   queryID,
		"db":         dbKey,
	})
}

type renderQueryRequest struct {
	SessionID  string `json:"session_id"`
	ToolCallID string `json:"tool_call_id"`
	PlotType   string `json:"plot_type"`
	XAxis      string `json:"x_axis"`
	YAxis      string `json:"y_axis"`
}

func handleRenderSavedQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Toolkit == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TOOLKIT_NOT_CONFIGURED", "data toolkit is not configured", false, nil)
		return
	}
	if err := requireRole(r, "analyst"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	queryID := strings.TrimSpace(r.PathValue("query_id"))
	if queryID == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUERY_ID_REQUIRED", "query_id path parameter is required", false, nil)
		return
	}

	var request renderQueryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid render request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SessionID) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SESSION_REQUIRED", "session_id is required", false, nil)
		return
	}

	document, err := deps.Toolkit.RenderSavedQuery(r.Context(), request.SessionID, queryID, request.ToolCallID, toolkit.RenderOptions{
		PlotType: request.PlotType,
		XAxis:    request.XAxis,
		YAxis:    request.YAxis,
	})
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "QUERY_NOT_FOUND", "saved query was not found", false, map[string]any{"query_id": queryID})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "RENDER_FAILED", "failed to render saved query", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":    request.SessionID,
		"query_id":      queryID,
		"visualization": document,
	})
}

func handleListSessionQueries(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Artifacts == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARTIFACTS_NOT_CONFIGURED", "artifact store is not configured", false, nil)
		return
	}
	if err := requireRole(r, "viewer"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	sessionID := strings.TrimSpace(r.PathValue("session_id"))
	queries, err := deps.Artifacts.ListQueries(r.Context(), sessionID)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "ARTIFACT_READ_FAILED", "failed to list saved queries", true, map[string]any{"details": err.Error()})
		return
	}
	if queries == nil {
		queries = []artifact.SavedQuery{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "queries": queries})
}

func handleListSessionCharts(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Artifacts == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARTIFACTS_NOT_CONFIGURED", "artifact store is not configured", false, nil)
		return
	}
	if err := requireRole(r, "viewer"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	sessionID := strings.TrimSpace(r.PathValue("session_id"))
	charts, err := deps.Artifacts.ListCharts(r.Context(), sessionID)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "ARTIFACT_READ_FAILED", "failed to list visualizations", true, map[string]any{"details": err.Error()})
		return
	}
	// Keyed by tool call id so callers can address a chart directly.
	visualizations := make(map[string]json.RawMessage, len(charts))
	for _, saved := range charts {
		visualizations[saved.ToolCallID] = json.RawMessage(saved.ChartJSON)
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "visualizations": visualizations})
}
