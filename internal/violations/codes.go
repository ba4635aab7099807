package violations

import (
	"regexp"
	"strconv"
)

// Violation narratives are pipe-delimited entries, each prefixed with its
// numeric code: "3. MANAGEMENT ... | 18. FOOD ...". A code counts only when
// it starts the narrative or directly follows a "| " delimiter.
var codePattern = regexp.MustCompile(`(?:^|\| )(\d+)\.`)

// ExtractCodes returns the leading violation codes in narrative order.
// Repeats are kept: downstream violation counts are per occurrence, not
// per distinct code. An empty narrative yields no codes.
func ExtractCodes(narrative string) []int {
	if narrative == "" {
		return nil
	}

	matches := codePattern.FindAllStringSubmatch(narrative, -1)
	if len(matches) == 0 {
		return nil
	}

	codes := make([]int, 0, len(matches))
	for _, m := range matches {
		code, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		codes = append(codes, code)
	}
	return codes
}
