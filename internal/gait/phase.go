package gait

import "fmt"

// RepresentativePhases are the phase percentages checked per step. 100% is
// a copy of 0% and is never checked directly.
var RepresentativePhases = []int{0, 25, 50, 75}

// MinPoints is the smallest resolution at which the representative phases
// land on distinct samples.
const MinPoints = 4

// PhaseIndex maps a phase percentage to a sample index using integer floor
// division: floor(phase * numPoints / 100). With 150 points this yields
// 0, 37, 75 and 112. Phase 100 wraps to index 0.
func PhaseIndex(phase, numPoints int) int {
	if phase >= 100 {
		return 0
	}
	return phase * numPoints / 100
}

// CheckPoints returns an error when numPoints is too small for the
// representative phases to map to distinct samples.
func CheckPoints(numPoints int) error {
	if numPoints < MinPoints {
		return fmt.Errorf("num_points %d below minimum %d", numPoints, MinPoints)
	}
	return nil
}

// PhaseBucket returns the representative phase governing sample point.
// Distance is measured cyclically in samples, so the tail of the cycle
// (approaching 100%) belongs to the 0% bucket. Ties go to the earlier phase.
func PhaseBucket(point, numPoints int) int {
	best, bestDist := RepresentativePhases[0], numPoints+1
	for _, phase := range RepresentativePhases {
		idx := PhaseIndex(phase, numPoints)
		d := point - idx
		if d < 0 {
			d = -d
		}
		if wrap := numPoints - d; wrap < d {
			d = wrap
		}
		if d < bestDist {
			best, bestDist = phase, d
		}
	}
	return best
}

// PhasePercent converts a sample index to its phase percentage.
func PhasePercent(point, numPoints int) float64 {
	return float64(point) * 100 / float64(numPoints)
}
