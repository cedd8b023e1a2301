// Package stats implements the population statistics used to compare one player's
// results against everybody else's: a linearly interpolated percentile, a 1.5×IQR
// outlier filter and the aggregator that summarizes a value set.
//
// Every function here is pure. Inputs are never mutated (sorting always happens on a
// copy) so the functions can be called concurrently on shared slices without locking.
package stats

import "math"

// Percentile returns the p-th percentile (p in [0,1]) of an ascending slice, linearly
// interpolating between the two closest ranks. The slice must already be sorted.
// An empty slice yields 0.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}

	index := float64(len(sorted)-1) * p
	lower := math.Floor(index)
	upper := math.Ceil(index)

	if lower == upper {
		return sorted[int(lower)]
	}

	weight := index - lower

	return sorted[int(lower)]*(1-weight) + sorted[int(upper)]*weight
}
