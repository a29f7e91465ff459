package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/queryviz/queryviz/internal/api"
	"github.com/queryviz/queryviz/internal/artifact"
	artifactpostgres "github.com/queryviz/queryviz/internal/artifact/postgres"
	artifactsqlite "github.com/queryviz/queryviz/internal/artifact/sqlite"
	"github.com/queryviz/queryviz/internal/auth"
	"github.com/queryviz/queryviz/internal/chart"
	"github.com/queryviz/queryviz/internal/config"
	"github.com/queryviz/queryviz/internal/datasource"
	"github.com/queryviz/queryviz/internal/ingest"
	"github.com/queryviz/queryviz/internal/llm"
	"github.com/queryviz/queryviz/internal/observability"
	"github.com/queryviz/queryviz/internal/pipeline"
	"github.com/queryviz/queryviz/internal/storage"
	s3store "github.com/queryviz/queryviz/internal/storage/s3"
	"github.com/queryviz/queryviz/internal/tabular"
	"github.com/queryviz/queryviz/internal/toolkit"
)

func main() {
	cfg, err := config.LoadFromEnv("queryviz-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	registry := datasource.NewRegistry()
	sources, err := cfg.Data.Entries()
	if err != nil {
		logger.Error("failed to parse data sources", slog.Any("error", err))
		os.Exit(1)
	}
	for key, rawSpec := range sources {
		spec, err := datasource.ParseSpec(rawSpec)
		if err != nil {
			logger.Error("failed to parse data source", slog.String("key", key), slog.Any("error", err))
			os.Exit(1)
		}
		registry.Register(key, spec)
	}
	defer func() { _ = registry.Close() }()

	artifacts, closeArtifacts, err := openArtifactStore(cfg)
	if err != nil {
		logger.Error("failed to open artifact store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeArtifacts()

	var objectStore storage.ObjectStore
	if cfg.ObjectStore.Enabled {
		objectStore, err = s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
	}

	llmClient, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize llm client", slog.Any("error", err))
		os.Exit(1)
	}

	coercer := tabular.Coercer{Logger: logger}
	planner := chart.Planner{}
	renderer := chart.NewRenderer(logger)
	if cfg.Pipeline.ChartRowCap > 0 {
		renderer.RowCap = cfg.Pipeline.ChartRowCap
	}

	questionPipeline := &pipeline.Pipeline{
		LLM:          llmClient,
		Data:         registry,
		Artifacts:    artifacts,
		Coercer:      coercer,
		Planner:      planner,
		Renderer:     renderer,
		Logger:       logger,
		Policy:       pipeline.VisualizePolicy(cfg.Pipeline.VisualizePolicy),
		RowThreshold: cfg.Pipeline.RowThreshold,
	}
	dataToolkit := &toolkit.Toolkit{
		Data:      registry,
		Artifacts: artifacts,
		Coercer:   coercer,
		Planner:   planner,
		Renderer:  renderer,
		Logger:    logger,
	}
	loader := ingest.NewLoader(registry, objectStore, logger)

	deps := api.Dependencies{
		Logger:    logger,
		Pipeline:  questionPipeline,
		Toolkit:   dataToolkit,
		Artifacts: artifacts,
		Loader:    loader,
		Readiness: api.CombineReadinessChecks(
			api.CheckDataSources(cfg),
			api.CheckObjectStoreConfig(cfg),
			api.CheckArtifactStore(artifacts),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func openArtifactStore(cfg config.Config) (artifact.Store, func(), error) {
	switch cfg.Artifacts.Backend {
	case "postgres":
		db, err := sql.Open("pgx", cfg.Artifacts.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		db.SetMaxOpenConns(cfg.Artifacts.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Artifacts.MaxIdleConns)
		db.SetConnMaxIdleTime(cfg.Artifacts.ConnMaxIdleTime)
		db.SetConnMaxLifetime(cfg.Artifacts.ConnMaxLifetime)
		store := artifactpostgres.NewStore(db)
		return store, func() { _ = store.Close() }, nil
	default:
		store, err := artifactsqlite.Open(cfg.Artifacts.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
}
