package ingestion

import (
	"fmt"
	"time"
)

// watermarkFormat is the date-literal format the upstream SoQL filter
// expects. The portal accepts several variants; this one is the pinned
// contract and is covered by a test. Do not change it without re-verifying
// against the live feed.
const watermarkFormat = "2006-01-02"

const dateField = "inspection_date"

// FetchPlanner builds the upstream filter for an incremental run. It is a
// pure function of the watermark and never touches the store itself.
type FetchPlanner struct{}

// BuildFilter returns a SoQL fragment selecting records strictly newer
// than the watermark, or an empty string (full fetch) when the store has
// no inspections yet.
func (FetchPlanner) BuildFilter(watermark *time.Time) string {
	if watermark == nil {
		return ""
	}
	return fmt.Sprintf("%s>'%s'", dateField, watermark.Format(watermarkFormat))
}
