// Package testutil provides shared test fixtures: uniform range tables and
// step data built to a known shape.
package testutil

import (
	"testing"

	"github.com/banshee-data/gait.report/internal/gait"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// UniformRanges gives every feature of mode the range [lo, hi] at every
// representative phase, for each named task.
func UniformRanges(mode gait.Mode, lo, hi float64, tasks ...string) map[string]gait.TaskRanges {
	out := make(map[string]gait.TaskRanges, len(tasks))
	for _, task := range tasks {
		phases := make(gait.TaskRanges, len(gait.RepresentativePhases))
		for _, p := range gait.RepresentativePhases {
			vars := gait.PhaseRanges{}
			for _, f := range mode.MustFeatures() {
				vars[f] = gait.Range{Min: lo, Max: hi}
			}
			phases[p] = vars
		}
		out[task] = phases
	}
	return out
}

// UniformTable is UniformRanges wrapped in a validated RangeTable.
func UniformTable(t testing.TB, mode gait.Mode, lo, hi float64, tasks ...string) *gait.RangeTable {
	t.Helper()
	table, err := gait.NewRangeTable(UniformRanges(mode, lo, hi, tasks...))
	if err != nil {
		t.Fatalf("NewRangeTable: %v", err)
	}
	return table
}

// ZeroSteps returns data[step][point][feature] filled with zeros, with one
// column per feature of mode.
func ZeroSteps(mode gait.Mode, steps, points int) [][][]float64 {
	features := len(mode.MustFeatures())
	data := make([][][]float64, steps)
	for s := range data {
		data[s] = make([][]float64, points)
		for p := range data[s] {
			data[s][p] = make([]float64, features)
		}
	}
	return data
}
