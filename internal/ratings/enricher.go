package ratings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/metrics"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/storage/models"
	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/circuitbreaker"
	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
)

type Searcher interface {
	Search(ctx context.Context, query string) (*PlaceResult, error)
}

type RatingStore interface {
	ListRestaurants(ctx context.Context) ([]models.Restaurant, error)
	UpsertRating(ctx context.Context, rating models.GoogleRating) error
}

type PlaceCache interface {
	Get(ctx context.Context, key string) (*PlaceResult, bool)
	Set(ctx context.Context, key string, result *PlaceResult)
}

// Enricher sweeps the facility roster and attaches Places ratings. The
// sweep is throttled with a fixed delay between remote lookups and guarded
// by a circuit breaker so a dead or quota-exhausted API aborts the run
// instead of burning the whole roster against it.
type Enricher struct {
	store   RatingStore
	places  Searcher
	cache   PlaceCache
	breaker *circuitbreaker.Breaker
	delay   time.Duration
}

func NewEnricher(store RatingStore, places Searcher, cache PlaceCache, delay time.Duration) *Enricher {
	return &Enricher{
		store:   store,
		places:  places,
		cache:   cache,
		breaker: circuitbreaker.New("places", 5, 30*time.Second, logger.Log),
		delay:   delay,
	}
}

func (e *Enricher) Run(ctx context.Context) (models.RatingsReport, error) {
	start := time.Now()
	report := models.RatingsReport{RunID: uuid.New().String()}
	log := logger.Log.With(zap.String("run_id", report.RunID))

	restaurants, err := e.store.ListRestaurants(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list restaurants: %w", err)
	}
	log.Info("starting ratings sweep", zap.Int("restaurants", len(restaurants)))

	for _, r := range restaurants {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
		report.Scanned++

		result, err := e.lookup(ctx, r, &report)
		if errors.Is(err, circuitbreaker.ErrOpen) {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("ratings sweep aborted: %w", err)
		}
		if err != nil && ctx.Err() != nil {
			report.Duration = time.Since(start)
			return report, ctx.Err()
		}
		if err != nil {
			report.Failed++
			metrics.RatingsLookups.WithLabelValues("error").Inc()
			log.Warn("place lookup failed",
				zap.Int64("license_number", r.LicenseNumber),
				zap.Error(err))
			continue
		}
		// A hit without a rating is treated like no hit at all: storing
		// it would be indistinguishable from a zero-star rating.
		if result == nil || result.Rating == nil {
			report.NotFound++
			metrics.RatingsLookups.WithLabelValues("not_found").Inc()
			continue
		}

		rating := models.GoogleRating{
			RestaurantID:     r.ID,
			PlaceID:          &result.PlaceID,
			Rating:           *result.Rating,
			UserRatingsTotal: result.UserRatingCount,
		}
		if err := e.store.UpsertRating(ctx, rating); err != nil {
			report.Failed++
			metrics.RatingsLookups.WithLabelValues("error").Inc()
			log.Warn("failed to store rating",
				zap.Int64("restaurant_id", r.ID),
				zap.Error(err))
			continue
		}
		report.Updated++
		metrics.RatingsLookups.WithLabelValues("updated").Inc()
	}

	report.Duration = time.Since(start)
	log.Info("ratings sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("updated", report.Updated),
		zap.Int("not_found", report.NotFound),
		zap.Int("failed", report.Failed),
		zap.Int("cache_hits", report.CacheHits),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// lookup resolves one facility, preferring the cache. Only remote lookups
// pay the throttle delay.
func (e *Enricher) lookup(ctx context.Context, r models.Restaurant, report *models.RatingsReport) (*PlaceResult, error) {
	key := cacheKey(r)
	if e.cache != nil {
		if result, ok := e.cache.Get(ctx, key); ok {
			report.CacheHits++
			metrics.RatingsLookups.WithLabelValues("cache_hit").Inc()
			return result, nil
		}
	}

	var result *PlaceResult
	err := e.breaker.Execute(func() error {
		var serr error
		result, serr = e.places.Search(ctx, SearchQuery(r))
		return serr
	})
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(ctx, key, result)
	}
	if err := e.throttle(ctx); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Enricher) throttle(ctx context.Context) error {
	if e.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(e.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cacheKey(r models.Restaurant) string {
	return fmt.Sprintf("places:%d", r.LicenseNumber)
}

// SearchQuery builds the free-text query for a facility from its name and
// address. Empty parts are skipped.
func SearchQuery(r models.Restaurant) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.DBAName, r.Address, r.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
