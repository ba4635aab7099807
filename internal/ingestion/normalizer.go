package ingestion

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clarkfannin/chicago-restaurant-inspections/internal/socrata"
	"github.com/clarkfannin/chicago-restaurant-inspections/internal/storage/models"
	"github.com/clarkfannin/chicago-restaurant-inspections/pkg/logger"
)

// The portal serves the same fields under different names depending on the
// endpoint: the CSV export uses display headers ("License #", "DBA Name"),
// the JSON one snake_case ("license_", "dba_name"). Keys are matched after
// lowercasing and stripping non-alphanumerics, which folds both spellings
// onto one canonical name.
func canonicalKey(key string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"01/02/2006",
}

type row map[string]string

func (r row) text(key string) string {
	return strings.TrimSpace(r[key])
}

func (r row) textOr(key, fallback string) string {
	if v := r.text(key); v != "" {
		return v
	}
	return fallback
}

func (r row) optText(key string) *string {
	if v := r.text(key); v != "" {
		return &v
	}
	return nil
}

// optInt tolerates float renderings of integral IDs ("2216457.0"), which
// the feed produces for some historical rows.
func (r row) optInt(key string) *int64 {
	v := r.text(key)
	if v == "" {
		return nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		n := int64(f)
		return &n
	}
	return nil
}

func (r row) optFloat(key string) *float64 {
	v := r.text(key)
	if v == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return &f
	}
	return nil
}

func (r row) optDate(key string) *time.Time {
	v := r.text(key)
	if v == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

type NormalizeResult struct {
	Records []models.InspectionRecord
	Dropped int
}

// Normalize coerces raw upstream rows into typed records. It is total:
// malformed cells become nulls, and a row is dropped (counted, logged)
// only when it lacks an identifying license number, inspection ID, or
// inspection date.
func Normalize(raw []socrata.Record) NormalizeResult {
	var result NormalizeResult

	for _, rec := range raw {
		r := make(row, len(rec))
		for k, v := range rec {
			r[canonicalKey(k)] = v
		}

		inspectionID := r.optInt("inspectionid")
		license := r.optInt("license")
		date := r.optDate("inspectiondate")

		if inspectionID == nil || license == nil || date == nil {
			result.Dropped++
			logger.Debug("dropping row missing identifying fields",
				zap.String("inspection_id", r.text("inspectionid")),
				zap.String("license", r.text("license")),
				zap.String("inspection_date", r.text("inspectiondate")),
			)
			continue
		}

		result.Records = append(result.Records, models.InspectionRecord{
			InspectionID:   *inspectionID,
			LicenseNumber:  *license,
			InspectionDate: *date,
			DBAName:        r.text("dbaname"),
			AKAName:        r.text("akaname"),
			FacilityType:   r.optText("facilitytype"),
			Address:        r.text("address"),
			City:           r.text("city"),
			State:          r.text("state"),
			Zip:            r.optInt("zip"),
			Latitude:       r.optFloat("latitude"),
			Longitude:      r.optFloat("longitude"),
			InspectionType: r.text("inspectiontype"),
			Result:         r.text("results"),
			Risk:           r.textOr("risk", "Unknown"),
			Violations:     r.optText("violations"),
		})
	}

	if result.Dropped > 0 {
		logger.Info("dropped rows during normalization", zap.Int("dropped", result.Dropped))
	}
	return result
}
