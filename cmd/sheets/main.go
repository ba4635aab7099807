package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/export"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/metrics"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/sheets"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/storage/postgres"
	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/config"
	appLogger "github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	if err := cfg.RequireDatabase(); err != nil {
		appLogger.Fatal("Invalid configuration", zap.Error(err))
	}
	if err := cfg.RequireSheets(); err != nil {
		appLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	metrics.Init()
	appLogger.Info("Starting sheet publish")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.New(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	filter, err := export.NewFacilityFilter(
		export.FilterMode(cfg.Export.FilterMode),
		cfg.Export.IncludeKeywords,
		cfg.Export.ExcludeTypes,
	)
	if err != nil {
		appLogger.Fatal("Invalid filter configuration", zap.Error(err))
	}

	exporter := export.NewExporter(store, filter, cfg.Export.YearsBack)
	snaps, err := exporter.BuildAll(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("sheets", "error").Inc()
		appLogger.Fatal("Failed to build extracts", zap.Error(err))
	}

	state, err := sheets.NewStateStore(cfg.Sheets.StatePath)
	if err != nil {
		appLogger.Fatal("Failed to open sync state", zap.Error(err))
	}
	defer state.Close()

	sink := sheets.NewRestSink(cfg.Sheets.SpreadsheetID, cfg.Sheets.AccessToken, 60*time.Second)
	publisher := sheets.NewPublisher(sink, state)

	report, err := publisher.Publish(ctx, snaps)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("sheets", "error").Inc()
		appLogger.Fatal("Publish failed", zap.Error(err))
	}

	metrics.RunsTotal.WithLabelValues("sheets", "success").Inc()
	appLogger.Info("Publish finished",
		zap.Strings("published", report.Published),
		zap.Strings("skipped", report.Skipped))
}
