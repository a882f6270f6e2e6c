// Package classify turns validation failures into a per-step, per-feature
// three-state classification used by plots and quality reports.
package classify

import (
	"fmt"
	"sort"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/validate"
)

// Attribution controls how failures without a step index are applied.
type Attribution int

const (
	// TaskWide applies a step-less failure to every step mapped to its task.
	// This is coarse: one bad step can flag its siblings.
	TaskWide Attribution = iota
	// StepOnly ignores step-less failures.
	StepOnly
)

// Options tunes classification. The zero value uses TaskWide attribution.
type Options struct {
	Attribution Attribution
}

// ViolatedVariables returns, per step, the set of variables with at least
// one failure. Only variables in mode's feature list are considered, and
// failures naming a step outside mapping are an error.
func ViolatedVariables(failures []validate.Violation, mapping gait.StepTaskMapping, mode gait.Mode, opts Options) (map[int]map[string]struct{}, error) {
	if !mode.Valid() {
		return nil, &gait.UnknownModeError{Mode: string(mode)}
	}
	out := make(map[int]map[string]struct{})
	add := func(step int, variable string) {
		set, ok := out[step]
		if !ok {
			set = make(map[string]struct{})
			out[step] = set
		}
		set[variable] = struct{}{}
	}

	var byTask map[string][]int
	for _, f := range failures {
		if mode.FeatureIndex(f.Variable) < 0 {
			continue
		}
		if step, ok := f.StepIndex(); ok {
			if _, mapped := mapping[step]; !mapped {
				return nil, fmt.Errorf("failure for %s names step %d not present in mapping", f.Variable, step)
			}
			add(step, f.Variable)
			continue
		}
		if opts.Attribution == StepOnly {
			continue
		}
		if byTask == nil {
			byTask = make(map[string][]int)
			for _, task := range mapping.Tasks() {
				byTask[task] = mapping.StepsForTask(task)
			}
		}
		for _, step := range byTask[f.Task] {
			add(step, f.Variable)
		}
	}
	return out, nil
}

// Classify builds the colour matrix for every step in mapping. The mapping
// must cover steps 0..len(mapping)-1; rows follow step index.
func Classify(failures []validate.Violation, mapping gait.StepTaskMapping, mode gait.Mode) (*ColorMatrix, error) {
	return ClassifyWithOptions(failures, mapping, mode, Options{})
}

// ClassifyWithOptions is Classify with explicit options.
func ClassifyWithOptions(failures []validate.Violation, mapping gait.StepTaskMapping, mode gait.Mode, opts Options) (*ColorMatrix, error) {
	features, err := mode.Features()
	if err != nil {
		return nil, err
	}
	if err := mapping.CheckContiguous(); err != nil {
		return nil, err
	}
	violated, err := ViolatedVariables(failures, mapping, mode, opts)
	if err != nil {
		return nil, err
	}

	m := newColorMatrix(mode, features, len(mapping))
	for step := 0; step < len(mapping); step++ {
		set := violated[step]
		for fi, name := range features {
			m.colors[step][fi] = colorFor(set, name)
		}
	}
	return m, nil
}

func colorFor(set map[string]struct{}, feature string) Color {
	if _, ok := set[feature]; ok {
		return LocalViolation
	}
	if len(set) > 0 {
		return OtherViolation
	}
	return Valid
}

// ClassifyForFeature returns one colour per step for a single feature,
// the column a per-feature plot needs.
func ClassifyForFeature(failures []validate.Violation, mapping gait.StepTaskMapping, mode gait.Mode, feature string) ([]Color, error) {
	fi := mode.FeatureIndex(feature)
	if !mode.Valid() {
		return nil, &gait.UnknownModeError{Mode: string(mode)}
	}
	if fi < 0 {
		return nil, fmt.Errorf("feature %q is not a %s feature", feature, mode)
	}
	m, err := Classify(failures, mapping, mode)
	if err != nil {
		return nil, err
	}
	return m.Column(fi), nil
}

// ClassifyOverview returns one colour per step for non-feature-specific
// overview plots: LocalViolation when the step has any violated variable,
// Valid otherwise. OtherViolation never appears.
func ClassifyOverview(failures []validate.Violation, mapping gait.StepTaskMapping, mode gait.Mode) ([]Color, error) {
	if err := mapping.CheckContiguous(); err != nil {
		return nil, err
	}
	violated, err := ViolatedVariables(failures, mapping, mode, Options{})
	if err != nil {
		return nil, err
	}
	out := make([]Color, len(mapping))
	for step := range out {
		if len(violated[step]) > 0 {
			out[step] = LocalViolation
		}
	}
	return out, nil
}

// SortedVariables returns the members of a violated-variable set in
// feature order for mode.
func SortedVariables(set map[string]struct{}, mode gait.Mode) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		return mode.FeatureIndex(out[i]) < mode.FeatureIndex(out[j])
	})
	return out
}
