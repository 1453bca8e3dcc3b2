package projection

import "slices"

// Median returns the median of sample. The second result is false for an
// empty sample. sample is not modified.
func Median(sample []float64) (float64, bool) {
	n := len(sample)
	if n == 0 {
		return 0, false
	}
	sorted := slices.Clone(sample)
	slices.Sort(sorted)

	mid := n / 2
	if n%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}
