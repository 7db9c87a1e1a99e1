package normalize

import "sort"

// primaryLanguage picks the highest-confidence candidate. The sort is
// stable, so candidates tied on confidence keep their input order and
// the first listed wins. With no candidates the fallback code is
// returned unchanged.
func primaryLanguage(candidates []Language, fallback string) string {
	if len(candidates) == 0 {
		return fallback
	}
	ranked := make([]Language, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return ranked[0].Code
}
