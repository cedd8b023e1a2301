package stats

import "slices"

const (
	// MinFilterSample is the smallest sample the outlier filter will trim.
	// Below it quartiles are too unstable to be trusted.
	MinFilterSample = 4
	// IQRFenceFactor is the Tukey fence multiplier.
	IQRFenceFactor = 1.5
)

// FilterOutliers drops the values lying outside [q1-1.5·IQR, q3+1.5·IQR].
//
// Samples shorter than MinFilterSample and samples whose quartiles coincide
// (IQR == 0) are returned as they are. Otherwise a new slice is returned and
// values keeps its order and content.
func FilterOutliers(values []float64) []float64 {
	if len(values) < MinFilterSample {
		return values
	}

	sorted := sortedCopy(values)
	q1 := Percentile(sorted, 0.25)
	q3 := Percentile(sorted, 0.75)

	iqr := q3 - q1
	if iqr == 0 {
		return values
	}

	lower := q1 - IQRFenceFactor*iqr
	upper := q3 + IQRFenceFactor*iqr

	kept := make([]float64, 0, len(values))

	for _, v := range values {
		if v >= lower && v <= upper {
			kept = append(kept, v)
		}
	}

	return kept
}

func sortedCopy(values []float64) []float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	return sorted
}
