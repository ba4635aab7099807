package violations

import (
	"sort"
	"strings"
)

const (
	CategoryFoodSafety     = "Food Safety & Temperature"
	CategoryPersonnel      = "Personnel & Training"
	CategorySanitation     = "Sanitation & Cleanliness"
	CategoryFacility       = "Facility & Equipment"
	CategorySourceLabeling = "Source & Labeling"
	CategoryPestControl    = "Pest Control & Contamination"
	CategoryAdministrative = "Administrative/Compliance"
)

var categoryCodes = map[string][]int{
	CategoryFoodSafety:     {18, 19, 20, 21, 22, 23, 24, 25, 30, 33, 34, 36},
	CategoryPersonnel:      {1, 2, 3, 4, 5, 6, 7, 8, 9, 57, 58},
	CategorySanitation:     {16, 39, 40, 41, 42, 43, 44},
	CategoryFacility:       {10, 45, 46, 47, 48, 49, 50, 51, 52, 53, 54, 55, 56},
	CategorySourceLabeling: {11, 12, 13, 14, 15, 26, 27, 31, 35, 37},
	CategoryPestControl:    {17, 28, 38},
	CategoryAdministrative: {29, 32, 59, 60, 61, 62, 63},
}

var codeCategory = func() map[int]string {
	m := make(map[int]string)
	for category, codes := range categoryCodes {
		for _, code := range codes {
			m[code] = category
		}
	}
	return m
}()

// Categorize maps codes through the taxonomy and returns the distinct
// matched category names sorted alphabetically. Codes outside the taxonomy
// are dropped.
func Categorize(codes []int) []string {
	seen := make(map[string]struct{})
	for _, code := range codes {
		if category, ok := codeCategory[code]; ok {
			seen[category] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	categories := make([]string, 0, len(seen))
	for category := range seen {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

// CategoryLabel renders the categorization for display, e.g.
// "Food Safety & Temperature, Personnel & Training".
func CategoryLabel(codes []int) string {
	return strings.Join(Categorize(codes), ", ")
}

// CategoryCounts counts how many raw codes mapped into each matched
// category. Repeated codes count each occurrence.
func CategoryCounts(codes []int) map[string]int {
	counts := make(map[string]int)
	for _, code := range codes {
		if category, ok := codeCategory[code]; ok {
			counts[category]++
		}
	}
	return counts
}
