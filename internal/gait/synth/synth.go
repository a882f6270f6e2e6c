// Package synth generates step arrays guaranteed to satisfy a task's range
// table, for test fixtures and demos.
package synth

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/banshee-data/gait.report/internal/gait"
)

// Options configures CreateValidData. Zero Mode, NumPoints and NumFeatures
// take defaults; Margin, Amplitude and Noise are used as given, so zero
// means none. Start from DefaultOptions for the usual values.
type Options struct {
	Mode gait.Mode
	// NumPoints is the per-step resolution (default gait.DefaultNumPoints).
	NumPoints int
	// NumFeatures is the column count (default: every feature of Mode).
	NumFeatures int
	// Margin is the fraction of range width kept clear at each bound.
	Margin float64
	// Amplitude is the sinusoid amplitude as a fraction of range width.
	Amplitude float64
	// Noise is the half-width of uniform per-sample noise as a fraction of range width.
	Noise float64
	// Seed seeds the random source.
	Seed uint64
	// PerStepSeed reseeds for each step from Seed and the step index, so a
	// given step's samples do not depend on how many steps are generated.
	PerStepSeed bool
}

// Defaults
const (
	DefaultMargin    = 0.05
	DefaultAmplitude = 0.25
	DefaultNoise     = 0.05
)

// DefaultOptions returns kinematic options with per-step seeding enabled.
func DefaultOptions() Options {
	return Options{
		Mode:        gait.ModeKinematic,
		NumPoints:   gait.DefaultNumPoints,
		Margin:      DefaultMargin,
		Amplitude:   DefaultAmplitude,
		Noise:       DefaultNoise,
		PerStepSeed: true,
	}
}

func (o Options) withDefaults() (Options, []string, error) {
	if o.Mode == "" {
		o.Mode = gait.ModeKinematic
	}
	features, err := o.Mode.Features()
	if err != nil {
		return o, nil, err
	}
	if o.NumPoints == 0 {
		o.NumPoints = gait.DefaultNumPoints
	}
	if o.NumFeatures == 0 {
		o.NumFeatures = len(features)
	}
	if err := gait.CheckPoints(o.NumPoints); err != nil {
		return o, nil, err
	}
	if o.NumFeatures < 0 || o.NumFeatures > len(features) {
		return o, nil, fmt.Errorf("num_features %d outside [1, %d] for %s mode", o.NumFeatures, len(features), o.Mode)
	}
	if o.Margin < 0 || o.Margin >= 0.5 {
		return o, nil, fmt.Errorf("margin %g must be in [0, 0.5)", o.Margin)
	}
	if o.Amplitude < 0 || o.Noise < 0 {
		return o, nil, fmt.Errorf("amplitude and noise must be non-negative")
	}
	return o, features[:o.NumFeatures], nil
}

// CreateValidData builds numSteps steps whose every sample lies within the
// safety-margined range of its governing representative phase.
//
// Each sample is centred on the bucket's range midpoint, offset by a
// per-step sinusoid and bounded noise, then clamped to
// [min + margin·width, max - margin·width]. Variables with no range for a
// bucket borrow the nearest populated representative phase; variables with
// no range anywhere are left at zero.
func CreateValidData(ranges gait.TaskRanges, numSteps int, opts Options) (*gait.StepArray, error) {
	o, features, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if numSteps < 0 {
		return nil, fmt.Errorf("num_steps %d must be non-negative", numSteps)
	}
	arr, err := gait.NewStepArray(numSteps, o.NumPoints, o.NumFeatures)
	if err != nil {
		return nil, err
	}

	buckets := make([]int, o.NumPoints)
	for p := range buckets {
		buckets[p] = gait.PhaseBucket(p, o.NumPoints)
	}
	envelopes := resolveEnvelopes(ranges, features)

	shared := rand.New(rand.NewPCG(o.Seed, o.Seed^0x9e3779b97f4a7c15))
	for s := 0; s < numSteps; s++ {
		rng := shared
		if o.PerStepSeed {
			rng = rand.New(rand.NewPCG(o.Seed, uint64(s)))
		}
		// Per-step variation: phase offset and amplitude scale.
		offset := rng.Float64() * 2 * math.Pi
		scale := 0.5 + 0.5*rng.Float64()
		for fi := range features {
			env := envelopes[fi]
			if env == nil {
				continue
			}
			for p := 0; p < o.NumPoints; p++ {
				r, ok := env[buckets[p]]
				if !ok {
					continue
				}
				w := r.Width()
				theta := 2*math.Pi*float64(p)/float64(o.NumPoints) + offset
				v := r.Mid() + o.Amplitude*scale*w*math.Sin(theta)
				v += (rng.Float64()*2 - 1) * o.Noise * w
				arr.Set(s, p, fi, clamp(v, r.Min+o.Margin*w, r.Max-o.Margin*w))
			}
		}
	}
	return arr, nil
}

// resolveEnvelopes returns, for each feature column, the range governing
// each representative phase bucket, or nil when the variable has no range.
func resolveEnvelopes(ranges gait.TaskRanges, features []string) []map[int]gait.Range {
	out := make([]map[int]gait.Range, len(features))
	for fi, name := range features {
		env := make(map[int]gait.Range)
		for _, phase := range gait.RepresentativePhases {
			if r, ok := nearestRange(ranges, phase, name); ok {
				env[phase] = r
			}
		}
		if len(env) > 0 {
			out[fi] = env
		}
	}
	return out
}

// nearestRange finds the range for variable at phase, falling back to the
// cyclically closest representative phase that defines it.
func nearestRange(ranges gait.TaskRanges, phase int, variable string) (gait.Range, bool) {
	if r, ok := ranges.Lookup(phase, variable); ok {
		return r, true
	}
	best, bestDist, found := gait.Range{}, 101, false
	for _, candidate := range gait.RepresentativePhases {
		r, ok := ranges.Lookup(candidate, variable)
		if !ok {
			continue
		}
		d := candidate - phase
		if d < 0 {
			d = -d
		}
		if wrap := 100 - d; wrap < d {
			d = wrap
		}
		if d < bestDist {
			best, bestDist, found = r, d, true
		}
	}
	return best, found
}

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		// Degenerate range; the midpoint is both bounds.
		return (lo + hi) / 2
	}
	return math.Max(lo, math.Min(hi, v))
}
