package export

import (
	"fmt"
	"strings"
)

type FilterMode string

const (
	// FilterInclude passes facilities whose type contains any configured
	// keyword (case-insensitive substring match).
	FilterInclude FilterMode = "include"
	// FilterExclude passes facilities whose type is not on the denylist.
	// Unknown (null) types always pass: unclassified rows are kept rather
	// than lost.
	FilterExclude FilterMode = "exclude"
)

// FacilityFilter decides whether a facility belongs in an extract. Exactly
// one mode is active per run; the mode is configuration, not a per-record
// decision.
type FacilityFilter struct {
	mode     FilterMode
	keywords []string
	denylist map[string]struct{}
}

func NewFacilityFilter(mode FilterMode, keywords, excludeTypes []string) (*FacilityFilter, error) {
	switch mode {
	case FilterInclude:
		if len(keywords) == 0 {
			return nil, fmt.Errorf("include mode requires at least one keyword")
		}
	case FilterExclude:
	default:
		return nil, fmt.Errorf("unknown filter mode %q", mode)
	}

	upper := make([]string, len(keywords))
	for i, kw := range keywords {
		upper[i] = strings.ToUpper(kw)
	}

	denylist := make(map[string]struct{}, len(excludeTypes))
	for _, t := range excludeTypes {
		denylist[t] = struct{}{}
	}

	return &FacilityFilter{mode: mode, keywords: upper, denylist: denylist}, nil
}

func (f *FacilityFilter) Include(facilityType *string) bool {
	switch f.mode {
	case FilterInclude:
		if facilityType == nil {
			return false
		}
		upper := strings.ToUpper(*facilityType)
		for _, kw := range f.keywords {
			if strings.Contains(upper, kw) {
				return true
			}
		}
		return false
	default:
		if facilityType == nil {
			return true
		}
		// Denylist matches are exact and case-sensitive.
		_, denied := f.denylist[*facilityType]
		return !denied
	}
}
