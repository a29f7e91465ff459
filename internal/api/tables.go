package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/queryviz/queryviz/internal/datasource"
)

func handleListTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Toolkit == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TOOLKIT_NOT_CONFIGURED", "data toolkit is not configured", false, nil)
		return
	}
	if err := requireRole(r, "viewer"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	dbKey := dbKeyFromRequest(deps, r)
	tables, err := deps.Toolkit.GetTables(r.Context(), dbKey)
	if err != nil {
		if errors.Is(err, datasource.ErrUnknownKey) {
			writeError(r.Context(), w, http.StatusNotFound, "SOURCE_NOT_FOUND", "data source is not registered", false, map[string]any{"db": dbKey})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "INTROSPECTION_FAILED", "failed to list tables", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"db": dbKey, "tables": tables})
}

func handleGetSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Toolkit == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TOOLKIT_NOT_CONFIGURED", "data toolkit is not configured", false, nil)
		return
	}
	if err := requireRole(r, "viewer"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	dbKey := dbKeyFromRequest(deps, r)
	schemas, err := deps.Toolkit.GetSchema(r.Context(), dbKey)
	if err != nil {
		if errors.Is(err, datasource.ErrUnknownKey) {
			writeError(r.Context(), w, http.StatusNotFound, "SOURCE_NOT_FOUND", "data source is not registered", false, map[string]any{"db": dbKey})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "INTROSPECTION_FAILED", "failed to read schema", true, map[string]any{"details": err.Error()})
		return
	}

	if table := strings.TrimSpace(r.URL.Query().Get("table")); table != "" {
		for _, schema := range schemas {
			if schema.Name == table {
				writeJSON(w, http.StatusOK, map[string]any{"db": dbKey, "schemas": []datasource.TableSchema{schema}})
				return
			}
		}
		writeError(r.Context(), w, http.StatusNotFound, "TABLE_NOT_FOUND", "table was not found in data source", false, map[string]any{"db": dbKey, "table": table})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"db": dbKey, "schemas": schemas})
}

func dbKeyFromRequest(deps Dependencies, r *http.Request) string {
	if dbKey := strings.TrimSpace(r.URL.Query().Get("db")); dbKey != "" {
		return dbKey
	}
	return deps.DefaultDBKey
}
