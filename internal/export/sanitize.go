package export

import (
	"math"
	"strconv"
	"time"
)

// Cell formatting shared by the CSV writer and the fingerprinter. Both
// surfaces must serialize a value identically or fingerprints drift on
// formatting alone.

const dateLayout = "2006-01-02"

func cellDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func cellString(s string) string {
	return s
}

func cellOptString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cellInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func cellOptInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

// cellFloat renders non-finite values as empty cells. Spreadsheet
// consumers reject Inf and NaN literals.
func cellFloat(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func cellOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return cellFloat(*v)
}
