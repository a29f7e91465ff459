package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/queryviz/queryviz/internal/artifact"
	"github.com/queryviz/queryviz/internal/chart"
	"github.com/queryviz/queryviz/internal/config"
	"github.com/queryviz/queryviz/internal/datasource"
	"github.com/queryviz/queryviz/internal/ingest"
	"github.com/queryviz/queryviz/internal/observability"
	"github.com/queryviz/queryviz/internal/pipeline"
	"github.com/queryviz/queryviz/internal/toolkit"
)

type ReadinessCheck func(ctx context.Context) error

// QuestionRunner executes the full question-to-answer pipeline.
type QuestionRunner interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Response
}

// DataToolkit exposes the direct data operations that do not involve the
// language model: introspection, saving queries and re-rendering them.
type DataToolkit interface {
	GetTables(ctx context.Context, dbKey string) ([]string, error)
	GetSchema(ctx context.Context, dbKey string) ([]datasource.TableSchema, error)
	SaveQuery(ctx context.Context, sessionID, dbKey, sqlText string) (string, error)
	RenderSavedQuery(ctx context.Context, sessionID, queryID, toolCallID string, opts toolkit.RenderOptions) (chart.Document, error)
}

// ArtifactReader lists the artifacts a session has accumulated.
type ArtifactReader interface {
	ListQueries(ctx context.Context, sessionID string) ([]artifact.SavedQuery, error)
	ListCharts(ctx context.Context, sessionID string) ([]artifact.SavedChart, error)
}

// DatasetLoader ingests uploaded dataset files into a data source.
type DatasetLoader interface {
	Load(ctx context.Context, dbKey, table, format string, data []byte) (ingest.Result, error)
	LoadFromObject(ctx context.Context, dbKey, table, objectKey string) (ingest.Result, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Pipeline          QuestionRunner
	Toolkit           DataToolkit
	Artifacts         ArtifactReader
	Loader            DatasetLoader
	DefaultDBKey      string
	MaxUploadBytes    int64
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	if deps.DefaultDBKey == "" {
		deps.DefaultDBKey = cfg.Data.DefaultKey
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 64 << 20
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/query", func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})
	protected.HandleFunc("GET /v1/tables", func(w http.ResponseWriter, r *http.Request) {
		handleListTables(deps, w, r)
	})
	protected.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleGetSchema(deps, w, r)
	})
	protected.HandleFunc("POST /v1/queries", func(w http.ResponseWriter, r *http.Request) {
		handleSaveQuery(deps, w, r)
	})
	protected.HandleFunc("POST /v1/queries/{query_id}/render", func(w http.ResponseWriter, r *http.Request) {
		handleRenderSavedQuery(deps, w, r)
	})
	protected.HandleFunc("GET /v1/sessions/{session_id}/queries", func(w http.ResponseWriter, r *http.Request) {
		handleListSessionQueries(deps, w, r)
	})
	protected.HandleFunc("GET /v1/sessions/{session_id}/visualizations", func(w http.ResponseWriter, r *http.Request) {
		handleListSessionCharts(deps, w, r)
	})
	protected.HandleFunc("POST /v1/datasets/{table}", func(w http.ResponseWriter, r *http.Request) {
		handleLoadDataset(deps, w, r)
	})

	var protectedHandler http.Handler = protected
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			protectedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
			})
		} else {
			protectedHandler = deps.AuthMiddleware(protectedHandler)
		}
	}
	mux.Handle("POST /v1/query", protectedHandler)
	mux.Handle("GET /v1/tables", protectedHandler)
	mux.Handle("GET /v1/schema", protectedHandler)
	mux.Handle("POST /v1/queries", protectedHandler)
	mux.Handle("POST /v1/queries/{query_id}/render", protectedHandler)
	mux.Handle("GET /v1/sessions/{session_id}/queries", protectedHandler)
	mux.Handle("GET /v1/sessions/{session_id}/visualizations", protectedHandler)
	mux.Handle("POST /v1/datasets/{table}", protectedHandler)

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func CheckDataSources(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		entries, err := cfg.Data.Entries()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errors.New("no data sources are configured")
		}
		if _, ok := entries[cfg.Data.DefaultKey]; !ok {
			return errors.New("default data source key is not configured")
		}
		return nil
	}
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if !cfg.ObjectStore.Enabled {
			return nil
		}
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CheckArtifactStore(store artifact.Store) ReadinessCheck {
	return func(ctx context.Context) error {
		if store == nil {
			return errors.New("artifact store is not configured")
		}
		return store.HealthCheck(ctx)
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
