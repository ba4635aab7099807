package models

import "time"

type Restaurant struct {
	ID            int64
	LicenseNumber int64
	DBAName       string
	AKAName       string
	FacilityType  *string
	Address       string
	City          string
	State         string
	Zip           *int64
	Latitude      *float64
	Longitude     *float64
	CreatedAt     time.Time
}

type Inspection struct {
	ID             int64
	LicenseNumber  int64
	InspectionDate time.Time
	InspectionType string
	Result         string
	Risk           string
	Violations     *string
	CreatedAt      time.Time
}

type GoogleRating struct {
	ID               int64
	RestaurantID     int64
	PlaceID          *string
	Rating           float64
	UserRatingsTotal int64
}

// InspectionRecord is one normalized upstream row. It is denormalized the
// way the feed delivers it: facility attributes repeat on every inspection
// of the same license.
type InspectionRecord struct {
	InspectionID   int64
	LicenseNumber  int64
	InspectionDate time.Time
	DBAName        string
	AKAName        string
	FacilityType   *string
	Address        string
	City           string
	State          string
	Zip            *int64
	Latitude       *float64
	Longitude      *float64
	InspectionType string
	Result         string
	Risk           string
	Violations     *string
}

type LoadReport struct {
	RunID               string
	Fetched             int
	Dropped             int
	RestaurantsUpserted int
	RestaurantsFailed   int
	InspectionsInserted int
	InspectionsSkipped  int
	InspectionsFailed   int
	Duration            time.Duration
}

type RatingsReport struct {
	RunID     string
	Scanned   int
	Updated   int
	NotFound  int
	Failed    int
	CacheHits int
	Duration  time.Duration
}
