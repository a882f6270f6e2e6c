package tuning

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ValueStats summarises the offending values of one failure group.
type ValueStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	P5     float64 `json:"p5"`
	P95    float64 `json:"p95"`
}

// computeStats returns statistics over values. Std is the population
// standard deviation. Returns the zero value for an empty slice.
func computeStats(values []float64) ValueStats {
	if len(values) == 0 {
		return ValueStats{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		std = 0
	}
	return ValueStats{
		Count:  len(sorted),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		Mean:   mean,
		Std:    std,
		Median: percentile(sorted, 50),
		P5:     percentile(sorted, 5),
		P95:    percentile(sorted, 95),
	}
}

// percentile interpolates linearly between the closest ranks of sorted,
// placing rank p/100·(n-1). This matches the definition report readers
// compare against; gonum's stat.Quantile offers only the empirical and
// CDF-interpolated estimators, which disagree on small groups.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if hi >= n {
		hi = n - 1
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
