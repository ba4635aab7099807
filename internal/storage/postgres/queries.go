package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/storage/models"
)

// JoinedInspection is one inspection row joined with its facility, the
// shape the extract builders consume.
type JoinedInspection struct {
	InspectionID   int64
	LicenseNumber  int64
	InspectionDate time.Time
	Result         string
	Violations     *string
	DBAName        string
	Address        string
	Zip            *int64
	FacilityType   *string
}

// RecentInspections returns inspections from the last yearsBack years
// joined with their facilities, newest first. Facility-type filtering is
// applied by the caller, keeping query parameters typed instead of
// interpolating keyword fragments into SQL.
func (s *Store) RecentInspections(ctx context.Context, yearsBack int, excludeOutOfBusiness bool) ([]JoinedInspection, error) {
	query := `
		SELECT i.inspection_id, i.restaurant_license, i.inspection_date, i.result, i.violations,
		       r.dba_name, r.address, r.zip, r.facility_type
		FROM inspections i
		JOIN restaurants r ON i.restaurant_license = r.license_number
		WHERE i.inspection_date > CURRENT_DATE - make_interval(years => $1)`
	if excludeOutOfBusiness {
		query += ` AND i.result != 'Out of Business'`
	}
	query += ` ORDER BY i.inspection_date DESC, i.inspection_id DESC`

	rows, err := s.pool.Query(ctx, query, yearsBack)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent inspections: %w", err)
	}
	defer rows.Close()

	var result []JoinedInspection
	for rows.Next() {
		var ji JoinedInspection
		if err := rows.Scan(
			&ji.InspectionID, &ji.LicenseNumber, &ji.InspectionDate, &ji.Result, &ji.Violations,
			&ji.DBAName, &ji.Address, &ji.Zip, &ji.FacilityType,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inspection row: %w", err)
		}
		result = append(result, ji)
	}
	return result, rows.Err()
}

// RecentRestaurants returns facilities with at least one inspection in the
// last yearsBack years.
func (s *Store) RecentRestaurants(ctx context.Context, yearsBack int) ([]models.Restaurant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.license_number, r.dba_name, r.aka_name, r.facility_type,
		       r.address, r.city, r.state, r.zip, r.latitude, r.longitude
		FROM restaurants r
		WHERE EXISTS (
			SELECT 1 FROM inspections i
			WHERE i.restaurant_license = r.license_number
			  AND i.inspection_date > CURRENT_DATE - make_interval(years => $1)
		)
		ORDER BY r.license_number`, yearsBack)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent restaurants: %w", err)
	}
	defer rows.Close()

	return scanRestaurants(rows)
}

// ListRestaurants returns every facility, for the ratings sweep.
func (s *Store) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.license_number, r.dba_name, r.aka_name, r.facility_type,
		       r.address, r.city, r.state, r.zip, r.latitude, r.longitude
		FROM restaurants r
		ORDER BY r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	defer rows.Close()

	return scanRestaurants(rows)
}

// RatingsByRestaurantIDs returns the stored ratings for the given
// restaurant ids.
func (s *Store) RatingsByRestaurantIDs(ctx context.Context, ids []int64) ([]models.GoogleRating, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, restaurant_id, place_id, rating, user_ratings_total
		FROM google_ratings
		WHERE restaurant_id = ANY($1)
		ORDER BY restaurant_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	var result []models.GoogleRating
	for rows.Next() {
		var gr models.GoogleRating
		if err := rows.Scan(&gr.ID, &gr.RestaurantID, &gr.PlaceID, &gr.Rating, &gr.UserRatingsTotal); err != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		result = append(result, gr)
	}
	return result, rows.Err()
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRestaurants(rows pgxRows) ([]models.Restaurant, error) {
	var result []models.Restaurant
	for rows.Next() {
		var r models.Restaurant
		if err := rows.Scan(
			&r.ID, &r.LicenseNumber, &r.DBAName, &r.AKAName, &r.FacilityType,
			&r.Address, &r.City, &r.State, &r.Zip, &r.Latitude, &r.Longitude,
		); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
