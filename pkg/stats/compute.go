package stats

import (
	"math"

	mstats "github.com/montanaflynn/stats"
)

// Computed summarizes one value set. It is derived on every request and never stored.
//
// An all-zero Computed is the "no data" sentinel returned for empty input; use Empty
// to tell it apart from a real population of zero scores.
type Computed struct {
	TotalCount      int     `json:"totalCount"`
	FilteredCount   int     `json:"filteredCount"`
	RemovedOutliers int     `json:"removedOutliers"`
	Average         float64 `json:"average"`
	Median          float64 `json:"median"`
	Best            float64 `json:"best"`
	Worst           float64 `json:"worst"`
}

// Empty reports whether c was computed from an empty value set.
func (c Computed) Empty() bool { return c.TotalCount == 0 }

// Compute summarizes values over their outlier-filtered subset. lowerIsBetter picks the
// direction of Best and Worst (timing tests prefer small values).
func Compute(values []float64, lowerIsBetter bool) Computed {
	if len(values) == 0 {
		return Computed{}
	}

	base := FilterOutliers(values)
	if len(base) == 0 {
		// unreachable with the current guards
		base = values
	}

	sorted := sortedCopy(base)

	// Mean sums in slice order, i.e. ascending here.
	average, err := mstats.Mean(sorted)
	if err != nil {
		average = 0
	}

	first, last := sorted[0], sorted[len(sorted)-1]

	out := Computed{
		TotalCount:      len(values),
		FilteredCount:   len(sorted),
		RemovedOutliers: len(values) - len(sorted),
		Average:         average,
		Median:          Percentile(sorted, 0.5),
		Best:            last,
		Worst:           first,
	}

	if lowerIsBetter {
		out.Best, out.Worst = first, last
	}

	return out
}

// trendThresholdPercent hides changes too small to mean anything.
const trendThresholdPercent = 1.0

// Trend is the change between a player's two most recent rounds.
type Trend struct {
	Latest        float64 `json:"latest"`
	Previous      float64 `json:"previous"`
	PercentChange float64 `json:"percentChange"` // positive means improvement
}

// Improved reports whether the latest round beat the previous one.
func (t Trend) Improved() bool { return t.PercentChange > 0 }

// ComputeTrend compares the two first values of a newest-first series. The second return
// value is false when there is nothing worth reporting: fewer than two rounds, a zero
// previous round, or a change below one percent.
func ComputeTrend(recentFirst []float64, lowerIsBetter bool) (Trend, bool) {
	if len(recentFirst) < 2 {
		return Trend{}, false
	}

	latest, previous := recentFirst[0], recentFirst[1]
	if previous == 0 {
		return Trend{}, false
	}

	diff := latest - previous
	if lowerIsBetter {
		diff = previous - latest
	}

	percent := diff / previous * 100
	if math.Abs(percent) < trendThresholdPercent {
		return Trend{}, false
	}

	return Trend{Latest: latest, Previous: previous, PercentChange: percent}, true
}
