package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/ingestion"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/metrics"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/socrata"
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
	if err := cfg.RequireChicago(); err != nil {
		appLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	metrics.Init()
	appLogger.Info("Starting inspection load")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.New(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	client := socrata.NewClient(
		cfg.Chicago.BaseURL,
		cfg.Chicago.DatasetID,
		cfg.Chicago.AppToken,
		time.Duration(cfg.Chicago.TimeoutSec)*time.Second,
	)

	loader := ingestion.NewLoader(client, store)
	report, err := loader.Run(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("load", "error").Inc()
		appLogger.Fatal("Load failed", zap.String("run_id", report.RunID), zap.Error(err))
	}

	metrics.RunsTotal.WithLabelValues("load", "success").Inc()
	appLogger.Info("Load finished",
		zap.String("run_id", report.RunID),
		zap.Int("fetched", report.Fetched),
		zap.Int("dropped", report.Dropped),
		zap.Int("restaurants_upserted", report.RestaurantsUpserted),
		zap.Int("inspections_inserted", report.InspectionsInserted),
		zap.Int("inspections_skipped", report.InspectionsSkipped),
		zap.Duration("duration", report.Duration))
}
