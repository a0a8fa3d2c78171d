package match

import (
	"cmp"
	"slices"
)

// DefaultLimit is how many profiles GetMatches returns.
const DefaultLimit = 20

// Rank drops zero scores, sorts by score descending (stable) and keeps the
// first limit. limit <= 0 keeps everything.
func Rank(profiles []Profile, limit int) []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.Score > 0 {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b Profile) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
