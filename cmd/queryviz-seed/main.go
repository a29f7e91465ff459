package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/queryviz/queryviz/internal/datasource"
	"github.com/queryviz/queryviz/internal/demo/seed"
	"github.com/queryviz/queryviz/internal/ingest"
)

func main() {
	cfg, err := seed.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load seed config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	spec, err := datasource.ParseSpec(cfg.Source)
	if err != nil {
		logger.Error("failed to parse data source", slog.Any("error", err))
		os.Exit(1)
	}
	registry := datasource.NewRegistry()
	registry.Register(cfg.DBKey, spec)
	defer func() { _ = registry.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seeder := &seed.Seeder{Loader: ingest.NewLoader(registry, nil, logger), Logger: logger}
	result, err := seeder.Run(ctx, cfg)
	if err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info(
		"seeding finished",
		slog.String("db", cfg.DBKey),
		slog.String("table", result.Table),
		slog.Int("rows", result.RowCount),
		slog.Int("days", cfg.Days),
	)
}
