package export

import (
	"context"
	"fmt"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/metrics"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/storage/models"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/storage/postgres"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/violations"
	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
	"go.uber.org/zap"
)

// ExtractStore is the slice of the database the exporter reads.
type ExtractStore interface {
	RecentInspections(ctx context.Context, yearsBack int, excludeOutOfBusiness bool) ([]postgres.JoinedInspection, error)
	RecentRestaurants(ctx context.Context, yearsBack int) ([]models.Restaurant, error)
	RatingsByRestaurantIDs(ctx context.Context, ids []int64) ([]models.GoogleRating, error)
}

// Exporter materializes the four extracts from the store: a flat
// per-inspection table, an exploded per-category table, the filtered
// facility roster, and the ratings for that roster.
type Exporter struct {
	store     ExtractStore
	filter    *FacilityFilter
	yearsBack int
}

func NewExporter(store ExtractStore, filter *FacilityFilter, yearsBack int) *Exporter {
	return &Exporter{store: store, filter: filter, yearsBack: yearsBack}
}

// BuildAll produces every extract. Snapshot order is stable so downstream
// publishing walks tabs deterministically.
func (e *Exporter) BuildAll(ctx context.Context) ([]*Snapshot, error) {
	inspections, err := e.store.RecentInspections(ctx, e.yearsBack, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load inspections: %w", err)
	}
	restaurants, err := e.store.RecentRestaurants(ctx, e.yearsBack)
	if err != nil {
		return nil, fmt.Errorf("failed to load restaurants: %w", err)
	}

	kept := e.filterRestaurants(restaurants)

	flat := e.buildInspections(inspections)
	categories := e.buildInspectionCategories(inspections)
	roster := e.buildRestaurants(kept)

	ratings, err := e.buildRatings(ctx, kept)
	if err != nil {
		return nil, err
	}

	snaps := []*Snapshot{flat, categories, roster, ratings}
	for _, s := range snaps {
		metrics.ExtractRows.WithLabelValues(s.Name).Set(float64(len(s.Rows)))
		logger.Info("built extract",
			zap.String("extract", s.Name),
			zap.Int("rows", len(s.Rows)))
	}
	return snaps, nil
}

func (e *Exporter) filterRestaurants(restaurants []models.Restaurant) []models.Restaurant {
	kept := restaurants[:0:0]
	for _, r := range restaurants {
		if e.filter.Include(r.FacilityType) {
			kept = append(kept, r)
		}
	}
	return kept
}

func (e *Exporter) buildInspections(inspections []postgres.JoinedInspection) *Snapshot {
	snap := &Snapshot{
		Name: "inspections",
		Columns: []string{
			"inspection_id", "license_number", "dba_name", "address", "zip",
			"inspection_date", "result", "violation_categories", "violation_count",
		},
		NumericColumns: []string{"inspection_id", "license_number", "zip", "violation_count"},
	}
	for _, ins := range inspections {
		if !e.filter.Include(ins.FacilityType) {
			continue
		}
		codes := violations.ExtractCodes(cellOptString(ins.Violations))
		snap.Rows = append(snap.Rows, []string{
			cellInt(ins.InspectionID),
			cellInt(ins.LicenseNumber),
			cellString(ins.DBAName),
			cellString(ins.Address),
			cellOptInt(ins.Zip),
			cellDate(ins.InspectionDate),
			cellString(ins.Result),
			violations.CategoryLabel(codes),
			cellInt(int64(len(codes))),
		})
	}
	return snap
}

// buildInspectionCategories explodes each inspection into one row per
// violation category it hit. Inspections with no parsed codes contribute
// nothing.
func (e *Exporter) buildInspectionCategories(inspections []postgres.JoinedInspection) *Snapshot {
	snap := &Snapshot{
		Name: "inspection_categories",
		Columns: []string{
			"inspection_id", "license_number", "dba_name", "address", "zip",
			"inspection_date", "result", "violation_category", "category_violation_count",
		},
		NumericColumns: []string{"inspection_id", "license_number", "zip", "category_violation_count"},
	}
	for _, ins := range inspections {
		if !e.filter.Include(ins.FacilityType) {
			continue
		}
		codes := violations.ExtractCodes(cellOptString(ins.Violations))
		if len(codes) == 0 {
			continue
		}
		counts := violations.CategoryCounts(codes)
		for _, cat := range violations.Categorize(codes) {
			snap.Rows = append(snap.Rows, []string{
				cellInt(ins.InspectionID),
				cellInt(ins.LicenseNumber),
				cellString(ins.DBAName),
				cellString(ins.Address),
				cellOptInt(ins.Zip),
				cellDate(ins.InspectionDate),
				cellString(ins.Result),
				cat,
				cellInt(int64(counts[cat])),
			})
		}
	}
	return snap
}

func (e *Exporter) buildRestaurants(kept []models.Restaurant) *Snapshot {
	snap := &Snapshot{
		Name: "restaurants",
		Columns: []string{
			"id", "license_number", "dba_name", "aka_name", "facility_type",
			"address", "city", "state", "zip", "latitude", "longitude",
		},
		NumericColumns: []string{"id", "license_number", "zip", "latitude", "longitude"},
	}
	for _, r := range kept {
		snap.Rows = append(snap.Rows, []string{
			cellInt(r.ID),
			cellInt(r.LicenseNumber),
			cellString(r.DBAName),
			cellString(r.AKAName),
			cellOptString(r.FacilityType),
			cellString(r.Address),
			cellString(r.City),
			cellString(r.State),
			cellOptInt(r.Zip),
			cellOptFloat(r.Latitude),
			cellOptFloat(r.Longitude),
		})
	}
	return snap
}

func (e *Exporter) buildRatings(ctx context.Context, kept []models.Restaurant) (*Snapshot, error) {
	snap := &Snapshot{
		Name: "google_ratings",
		Columns: []string{
			"id", "restaurant_id", "place_id", "rating", "user_ratings_total",
		},
		NumericColumns: []string{"id", "restaurant_id", "rating", "user_ratings_total"},
	}
	if len(kept) == 0 {
		return snap, nil
	}

	ids := make([]int64, len(kept))
	for i, r := range kept {
		ids[i] = r.ID
	}
	ratings, err := e.store.RatingsByRestaurantIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	for _, gr := range ratings {
		snap.Rows = append(snap.Rows, []string{
			cellInt(gr.ID),
			cellInt(gr.RestaurantID),
			cellOptString(gr.PlaceID),
			cellFloat(gr.Rating),
			cellInt(gr.UserRatingsTotal),
		})
	}
	return snap, nil
}
