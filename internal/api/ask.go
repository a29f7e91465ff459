package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/queryviz/queryviz/internal/auth"
	"github.com/queryviz/queryviz/internal/pipeline"
)

type askRequest struct {
	Question   string `json:"question"`
	SessionID  string `json:"session_id"`
	DB         string `json:"db"`
	ToolCallID string `json:"tool_call_id"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "PIPELINE_NOT_CONFIGURED", "question pipeline is not configured", false, nil)
		return
	}
	if err := requireRole(r, "analyst"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid question request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	dbKey := request.DB
	if dbKey == "" {
		dbKey = deps.DefaultDBKey
	}

	response := deps.Pipeline.Run(r.Context(), pipeline.Request{
		Question:   request.Question,
		SessionID:  request.SessionID,
		DBKey:      dbKey,
		ToolCallID: request.ToolCallID,
	})
	writeJSON(w, http.StatusOK, response)
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}
