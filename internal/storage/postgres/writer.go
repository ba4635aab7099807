package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/storage/models"
	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
)

const upsertRestaurantSQL = `
	INSERT INTO restaurants
		(license_number, dba_name, aka_name, facility_type, address, city, state, zip, latitude, longitude)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (license_number) DO UPDATE SET
		dba_name = EXCLUDED.dba_name,
		aka_name = EXCLUDED.aka_name,
		facility_type = EXCLUDED.facility_type,
		address = EXCLUDED.address,
		city = EXCLUDED.city,
		state = EXCLUDED.state,
		zip = EXCLUDED.zip,
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude`

const insertInspectionSQL = `
	INSERT INTO inspections
		(inspection_id, restaurant_license, inspection_date, inspection_type, result, risk, violations)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (inspection_id) DO NOTHING`

// UpsertRestaurants deduplicates input rows by license number (first
// occurrence wins within the batch) and upserts each facility with a full
// overwrite on conflict. A failing row is logged with its license number
// and skipped; the rest of the group still commits.
func (s *Store) UpsertRestaurants(ctx context.Context, records []models.InspectionRecord) (int, int, error) {
	seen := make(map[int64]struct{}, len(records))
	deduped := make([]models.InspectionRecord, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.LicenseNumber]; ok {
			continue
		}
		seen[rec.LicenseNumber] = struct{}{}
		deduped = append(deduped, rec)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin restaurant upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	var upserted, failed int
	for _, rec := range deduped {
		// Nested Begin opens a savepoint, so one bad row cannot poison
		// the surrounding transaction.
		sp, err := tx.Begin(ctx)
		if err != nil {
			return upserted, failed, fmt.Errorf("failed to open savepoint: %w", err)
		}

		_, err = sp.Exec(ctx, upsertRestaurantSQL,
			rec.LicenseNumber, rec.DBAName, rec.AKAName, rec.FacilityType,
			rec.Address, rec.City, rec.State, rec.Zip, rec.Latitude, rec.Longitude,
		)
		if err != nil {
			sp.Rollback(ctx)
			failed++
			logger.Warn("failed to upsert restaurant",
				zap.Int64("license_number", rec.LicenseNumber),
				zap.Error(err),
			)
			continue
		}
		if err := sp.Commit(ctx); err != nil {
			return upserted, failed, fmt.Errorf("failed to release savepoint: %w", err)
		}
		upserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return upserted, failed, fmt.Errorf("failed to commit restaurant upsert: %w", err)
	}

	logger.Info("restaurants upserted", zap.Int("upserted", upserted), zap.Int("failed", failed))
	return upserted, failed, nil
}

// InsertInspections appends inspection events. Conflicts on inspection_id
// are no-ops: an inspection is immutable once stored, so a duplicate
// sighting is counted as skipped rather than overwritten.
func (s *Store) InsertInspections(ctx context.Context, records []models.InspectionRecord) (int, int, int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to begin inspection insert: %w", err)
	}
	defer tx.Rollback(ctx)

	var inserted, skipped, failed int
	for _, rec := range records {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return inserted, skipped, failed, fmt.Errorf("failed to open savepoint: %w", err)
		}

		tag, err := sp.Exec(ctx, insertInspectionSQL,
			rec.InspectionID, rec.LicenseNumber, rec.InspectionDate,
			rec.InspectionType, rec.Result, rec.Risk, rec.Violations,
		)
		if err != nil {
			sp.Rollback(ctx)
			failed++
			logger.Warn("failed to insert inspection",
				zap.Int64("inspection_id", rec.InspectionID),
				zap.Error(err),
			)
			continue
		}
		if err := sp.Commit(ctx); err != nil {
			return inserted, skipped, failed, fmt.Errorf("failed to release savepoint: %w", err)
		}

		if tag.RowsAffected() == 0 {
			skipped++
		} else {
			inserted++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return inserted, skipped, failed, fmt.Errorf("failed to commit inspection insert: %w", err)
	}

	logger.Info("inspections inserted",
		zap.Int("inserted", inserted),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return inserted, skipped, failed, nil
}

// UpsertRating keeps at most one rating row per restaurant; a fresh lookup
// overwrites the previous rating and place id.
func (s *Store) UpsertRating(ctx context.Context, rating models.GoogleRating) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO google_ratings (restaurant_id, place_id, rating, user_ratings_total, fetched_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		ON CONFLICT (restaurant_id) DO UPDATE SET
			place_id = EXCLUDED.place_id,
			rating = EXCLUDED.rating,
			user_ratings_total = EXCLUDED.user_ratings_total,
			fetched_at = EXCLUDED.fetched_at`,
		rating.RestaurantID, rating.PlaceID, rating.Rating, rating.UserRatingsTotal,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rating for restaurant %d: %w", rating.RestaurantID, err)
	}
	return nil
}
