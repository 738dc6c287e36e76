package pipeline

import (
	"slices"

	"github.com/kevinmichaelchen/libfinder/internal/models"
)

// MaxResults caps a search response.
const MaxResults = 10

// DedupeAndRank flattens per-term results in term order, keeps the first
// record seen for each repo key, sorts by stars descending (stable, so ties
// keep discovery order) and truncates to MaxResults.
func DedupeAndRank(all [][]models.Repo) []models.Repo {
	seen := make(map[string]bool)
	var unique []models.Repo
	for _, list := range all {
		for _, r := range list {
			k := r.Key()
			if seen[k] {
				continue
			}
			seen[k] = true
			unique = append(unique, r)
		}
	}

	slices.SortStableFunc(unique, func(a, b models.Repo) int {
		return b.Stars - a.Stars
	})

	if len(unique) > MaxResults {
		unique = unique[:MaxResults]
	}
	return unique
}
