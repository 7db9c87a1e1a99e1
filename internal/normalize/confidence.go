package normalize

// keep reports whether a confidence value survives the threshold.
// The comparison is inclusive: a block exactly at the threshold stays.
// Filtering happens at block level only; contents of a kept block are
// never re-filtered.
func keep(confidence, threshold float64) bool {
	return confidence >= threshold
}
