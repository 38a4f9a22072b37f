package match

import (
	"math"

	"github.com/agext/levenshtein"
)

// Similarity returns a 0-100 score between two normalized names, where 100
// is an exact match. Edit distance is scaled against the longer input.
func Similarity(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	return int(math.Round(levenshtein.Similarity(a, b, nil) * 100))
}
