package export

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/storage/models"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/storage/postgres"
)

type fakeExtractStore struct {
	inspections []postgres.JoinedInspection
	restaurants []models.Restaurant
	ratings     []models.GoogleRating

	ratingsIDs []int64
}

func (f *fakeExtractStore) RecentInspections(_ context.Context, _ int, _ bool) ([]postgres.JoinedInspection, error) {
	return f.inspections, nil
}

func (f *fakeExtractStore) RecentRestaurants(_ context.Context, _ int) ([]models.Restaurant, error) {
	return f.restaurants, nil
}

func (f *fakeExtractStore) RatingsByRestaurantIDs(_ context.Context, ids []int64) ([]models.GoogleRating, error) {
	f.ratingsIDs = ids
	return f.ratings, nil
}

func mustFilter(t *testing.T) *FacilityFilter {
	t.Helper()
	f, err := NewFacilityFilter(FilterInclude, []string{"RESTAURANT"}, nil)
	require.NoError(t, err)
	return f
}

func TestBuildAllProducesFourExtracts(t *testing.T) {
	date := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	narrative := "18. NO EVIDENCE OF RODENT INFESTATION - Comments: droppings observed | 2. CITY OF CHICAGO FOOD SERVICE SANITATION CERTIFICATE - Comments: none posted"
	store := &fakeExtractStore{
		inspections: []postgres.JoinedInspection{
			{
				InspectionID: 100, LicenseNumber: 7, InspectionDate: date,
				Result: "Fail", Violations: strptr(narrative),
				DBAName: "LOU'S DINER", Address: "100 W MAIN ST",
				FacilityType: strptr("Restaurant"),
			},
			{
				InspectionID: 101, LicenseNumber: 8, InspectionDate: date,
				Result: "Pass", Violations: nil,
				DBAName: "CORNER GROCERY", Address: "200 N ELM ST",
				FacilityType: strptr("Grocery Store"),
			},
		},
		restaurants: []models.Restaurant{
			{ID: 1, LicenseNumber: 7, DBAName: "LOU'S DINER", FacilityType: strptr("Restaurant"), City: "CHICAGO", State: "IL"},
			{ID: 2, LicenseNumber: 8, DBAName: "CORNER GROCERY", FacilityType: strptr("Grocery Store"), City: "CHICAGO", State: "IL"},
		},
		ratings: []models.GoogleRating{
			{ID: 10, RestaurantID: 1, PlaceID: strptr("place-a"), Rating: 4.5, UserRatingsTotal: 120},
		},
	}

	ex := NewExporter(store, mustFilter(t), 5)
	snaps, err := ex.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 4)

	byName := map[string]*Snapshot{}
	for _, s := range snaps {
		byName[s.Name] = s
	}

	flat := byName["inspections"]
	require.Len(t, flat.Rows, 1)
	assert.Equal(t, "100", flat.Rows[0][0])
	assert.Equal(t, "2025-03-14", flat.Rows[0][5])
	assert.Equal(t, "Food Safety & Temperature, Personnel & Training", flat.Rows[0][7])
	assert.Equal(t, "2", flat.Rows[0][8])

	cats := byName["inspection_categories"]
	require.Len(t, cats.Rows, 2)
	assert.Equal(t, "Food Safety & Temperature", cats.Rows[0][7])
	assert.Equal(t, "1", cats.Rows[0][8])
	assert.Equal(t, "Personnel & Training", cats.Rows[1][7])

	roster := byName["restaurants"]
	require.Len(t, roster.Rows, 1)
	assert.Equal(t, "7", roster.Rows[0][1])

	ratings := byName["google_ratings"]
	require.Len(t, ratings.Rows, 1)
	assert.Equal(t, "4.5", ratings.Rows[0][3])
	assert.Equal(t, []int64{1}, store.ratingsIDs)
}

func TestBuildAllNoRatingsQueryWhenRosterEmpty(t *testing.T) {
	store := &fakeExtractStore{
		restaurants: []models.Restaurant{
			{ID: 2, LicenseNumber: 8, DBAName: "CORNER GROCERY", FacilityType: strptr("Grocery Store")},
		},
		ratingsIDs: nil,
	}

	ex := NewExporter(store, mustFilter(t), 5)
	snaps, err := ex.BuildAll(context.Background())
	require.NoError(t, err)

	for _, s := range snaps {
		assert.Empty(t, s.Rows, s.Name)
	}
	assert.Nil(t, store.ratingsIDs)
}

func TestBuildInspectionsNullableCells(t *testing.T) {
	store := &fakeExtractStore{
		inspections: []postgres.JoinedInspection{
			{
				InspectionID: 200, LicenseNumber: 9,
				InspectionDate: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
				Result:         "Pass", Violations: nil, Zip: nil,
				DBAName: "TACO SPOT", FacilityType: strptr("Restaurant"),
			},
		},
	}

	ex := NewExporter(store, mustFilter(t), 5)
	snaps, err := ex.BuildAll(context.Background())
	require.NoError(t, err)

	flat := snaps[0]
	require.Len(t, flat.Rows, 1)
	assert.Equal(t, "", flat.Rows[0][4])
	assert.Equal(t, "", flat.Rows[0][7])
	assert.Equal(t, "0", flat.Rows[0][8])

	cats := snaps[1]
	assert.Empty(t, cats.Rows)
}
