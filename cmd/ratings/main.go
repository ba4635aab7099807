package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/metrics"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/ops"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/ratings"
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
	if err := cfg.RequireRatings(); err != nil {
		appLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	metrics.Init()
	appLogger.Info("Starting ratings sweep")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Ops.Enabled {
		server := ops.NewServer(cfg.Ops.Addr)
		server.Start()
		defer server.Shutdown()
	}

	store, err := postgres.New(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	var cache ratings.PlaceCache
	if cfg.Redis.Enabled {
		ttl := time.Duration(cfg.Ratings.CacheTTLHours) * time.Hour
		redisCache, err := ratings.NewCache(ctx,
			cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB, ttl)
		if err != nil {
			appLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisCache.Close()
		cache = redisCache
	}

	places := ratings.NewPlacesClient(cfg.Ratings.APIKey, 30*time.Second)
	delay := time.Duration(cfg.Ratings.DelayMs) * time.Millisecond

	enricher := ratings.NewEnricher(store, places, cache, delay)
	report, err := enricher.Run(ctx)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("ratings", "error").Inc()
		appLogger.Fatal("Ratings sweep failed", zap.String("run_id", report.RunID), zap.Error(err))
	}

	metrics.RunsTotal.WithLabelValues("ratings", "success").Inc()
	appLogger.Info("Ratings sweep finished",
		zap.String("run_id", report.RunID),
		zap.Int("scanned", report.Scanned),
		zap.Int("updated", report.Updated),
		zap.Int("not_found", report.NotFound),
		zap.Int("failed", report.Failed),
		zap.Int("cache_hits", report.CacheHits),
		zap.Duration("duration", report.Duration))
}
