package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/socrata"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/storage/models"
)

type fakeFetcher struct {
	gotWhere string
	records  []socrata.Record
	err      error
}

func (f *fakeFetcher) FetchCSV(_ context.Context, where string) ([]socrata.Record, error) {
	f.gotWhere = where
	return f.records, f.err
}

type fakeStore struct {
	watermark       *time.Time
	upsertCalls     int
	insertCalls     int
	upsertedRecords []models.InspectionRecord
}

func (s *fakeStore) MaxInspectionDate(context.Context) (*time.Time, error) {
	return s.watermark, nil
}

func (s *fakeStore) UpsertRestaurants(_ context.Context, records []models.InspectionRecord) (int, int, error) {
	s.upsertCalls++
	s.upsertedRecords = records
	return len(records), 0, nil
}

func (s *fakeStore) InsertInspections(_ context.Context, records []models.InspectionRecord) (int, int, int, error) {
	s.insertCalls++
	return len(records), 0, 0, nil
}

func validRecord(id, license string) socrata.Record {
	return socrata.Record{
		"Inspection ID":   id,
		"License #":       license,
		"Inspection Date": "2025-08-01",
		"DBA Name":        "SOME PLACE",
		"Results":         "Pass",
	}
}

func TestLoaderZeroNewRowsSkipsStoreWrites(t *testing.T) {
	fetcher := &fakeFetcher{}
	wm := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{watermark: &wm}

	report, err := NewLoader(fetcher, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "inspection_date>'2025-08-01'", fetcher.gotWhere)
	assert.Zero(t, report.Fetched)
	assert.Zero(t, store.upsertCalls)
	assert.Zero(t, store.insertCalls)
}

func TestLoaderFullFetchOnEmptyStore(t *testing.T) {
	fetcher := &fakeFetcher{records: []socrata.Record{validRecord("1", "10")}}
	store := &fakeStore{}

	report, err := NewLoader(fetcher, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "", fetcher.gotWhere)
	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 1, report.RestaurantsUpserted)
	assert.Equal(t, 1, report.InspectionsInserted)
}

func TestLoaderRestaurantsBeforeInspections(t *testing.T) {
	fetcher := &fakeFetcher{records: []socrata.Record{
		validRecord("1", "10"),
		validRecord("2", "10"),
	}}

	order := []string{}
	store := &orderedStore{order: &order}

	_, err := NewLoader(fetcher, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"restaurants", "inspections"}, order)
}

type orderedStore struct {
	order *[]string
}

func (s *orderedStore) MaxInspectionDate(context.Context) (*time.Time, error) { return nil, nil }

func (s *orderedStore) UpsertRestaurants(_ context.Context, records []models.InspectionRecord) (int, int, error) {
	*s.order = append(*s.order, "restaurants")
	return len(records), 0, nil
}

func (s *orderedStore) InsertInspections(_ context.Context, records []models.InspectionRecord) (int, int, int, error) {
	*s.order = append(*s.order, "inspections")
	return len(records), 0, 0, nil
}

func TestLoaderPropagatesFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("http 503")}
	store := &fakeStore{}

	_, err := NewLoader(fetcher, store).Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, store.upsertCalls)
}

func TestLoaderCountsDroppedRows(t *testing.T) {
	fetcher := &fakeFetcher{records: []socrata.Record{
		validRecord("1", "10"),
		{"Inspection ID": "2", "License #": "", "Inspection Date": "2025-08-01"},
	}}
	store := &fakeStore{}

	report, err := NewLoader(fetcher, store).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, 1, report.Dropped)
	require.Len(t, store.upsertedRecords, 1)
}
