package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/export"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/metrics"
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
	if cfg.S3.Enabled {
		if err := cfg.RequireS3(); err != nil {
			appLogger.Fatal("Invalid configuration", zap.Error(err))
		}
	}

	metrics.Init()
	appLogger.Info("Starting extract export")

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
		metrics.RunsTotal.WithLabelValues("export", "error").Inc()
		appLogger.Fatal("Failed to build extracts", zap.Error(err))
	}

	if err := export.WriteCSVFiles(cfg.Export.OutputDir, snaps); err != nil {
		metrics.RunsTotal.WithLabelValues("export", "error").Inc()
		appLogger.Fatal("Failed to write extracts", zap.Error(err))
	}

	if cfg.S3.Enabled {
		uploader, err := export.NewUploader(ctx,
			cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Bucket, cfg.S3.UseSSL)
		if err != nil {
			metrics.RunsTotal.WithLabelValues("export", "error").Inc()
			appLogger.Fatal("Failed to connect to object store", zap.Error(err))
		}
		if err := uploader.UploadSnapshots(ctx, snaps); err != nil {
			metrics.RunsTotal.WithLabelValues("export", "error").Inc()
			appLogger.Fatal("Failed to upload extracts", zap.Error(err))
		}
	}

	metrics.RunsTotal.WithLabelValues("export", "success").Inc()
	appLogger.Info("Export finished",
		zap.String("output_dir", cfg.Export.OutputDir),
		zap.Int("extracts", len(snaps)))
}
