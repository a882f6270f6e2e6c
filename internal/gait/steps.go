package gait

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DefaultNumPoints is the conventional resampling resolution of one gait cycle.
const DefaultNumPoints = 150

// StepArray is a dense [steps, points, features] array stored row-major.
type StepArray struct {
	Steps    int
	Points   int
	Features int
	data     []float64
}

// NewStepArray allocates a zero-filled array with the given shape.
func NewStepArray(steps, points, features int) (*StepArray, error) {
	if steps < 0 || points <= 0 || features <= 0 {
		return nil, fmt.Errorf("invalid step array shape [%d, %d, %d]", steps, points, features)
	}
	return &StepArray{
		Steps:    steps,
		Points:   points,
		Features: features,
		data:     make([]float64, steps*points*features),
	}, nil
}

// FromNested builds a StepArray from data[step][point][feature]. Every
// step must have the same number of points and every point the same
// number of features.
func FromNested(nested [][][]float64) (*StepArray, error) {
	if len(nested) == 0 {
		return nil, fmt.Errorf("step array has no steps")
	}
	points := len(nested[0])
	if points == 0 {
		return nil, fmt.Errorf("step 0 has no points")
	}
	features := len(nested[0][0])
	arr, err := NewStepArray(len(nested), points, features)
	if err != nil {
		return nil, err
	}
	for s, step := range nested {
		if len(step) != points {
			return nil, fmt.Errorf("step %d has %d points, want %d", s, len(step), points)
		}
		for p, row := range step {
			if len(row) != features {
				return nil, fmt.Errorf("step %d point %d has %d features, want %d", s, p, len(row), features)
			}
			copy(arr.data[arr.offset(s, p, 0):], row)
		}
	}
	return arr, nil
}

func (a *StepArray) offset(step, point, feature int) int {
	return (step*a.Points+point)*a.Features + feature
}

// At returns the value at (step, point, feature). It panics on out-of-range
// indices, like slice indexing.
func (a *StepArray) At(step, point, feature int) float64 {
	a.check(step, point, feature)
	return a.data[a.offset(step, point, feature)]
}

// Set stores v at (step, point, feature).
func (a *StepArray) Set(step, point, feature int, v float64) {
	a.check(step, point, feature)
	a.data[a.offset(step, point, feature)] = v
}

func (a *StepArray) check(step, point, feature int) {
	if step < 0 || step >= a.Steps || point < 0 || point >= a.Points || feature < 0 || feature >= a.Features {
		panic(fmt.Sprintf("gait: index [%d, %d, %d] out of range for shape [%d, %d, %d]",
			step, point, feature, a.Steps, a.Points, a.Features))
	}
}

// Column returns the per-point series for one (step, feature) pair.
func (a *StepArray) Column(step, feature int) []float64 {
	out := make([]float64, a.Points)
	for p := range out {
		out[p] = a.At(step, p, feature)
	}
	return out
}

// Nested returns a freshly allocated [step][point][feature] copy.
func (a *StepArray) Nested() [][][]float64 {
	out := make([][][]float64, a.Steps)
	for s := range out {
		out[s] = make([][]float64, a.Points)
		for p := range out[s] {
			row := make([]float64, a.Features)
			copy(row, a.data[a.offset(s, p, 0):a.offset(s, p, 0)+a.Features])
			out[s][p] = row
		}
	}
	return out
}

// MarshalJSON encodes the array in nested form.
func (a *StepArray) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Nested())
}

// UnmarshalJSON decodes a nested [step][point][feature] array.
func (a *StepArray) UnmarshalJSON(b []byte) error {
	var nested [][][]float64
	if err := json.Unmarshal(b, &nested); err != nil {
		return err
	}
	arr, err := FromNested(nested)
	if err != nil {
		return err
	}
	*a = *arr
	return nil
}

// StepTaskMapping maps step index to the task that step belongs to.
type StepTaskMapping map[int]string

// MappingFromTasks builds a mapping where step i belongs to tasks[i].
func MappingFromTasks(tasks []string) StepTaskMapping {
	m := make(StepTaskMapping, len(tasks))
	for i, t := range tasks {
		m[i] = t
	}
	return m
}

// UniformMapping assigns all n steps to task.
func UniformMapping(task string, n int) StepTaskMapping {
	m := make(StepTaskMapping, n)
	for i := 0; i < n; i++ {
		m[i] = task
	}
	return m
}

// Steps returns every mapped step index in ascending order.
func (m StepTaskMapping) Steps() []int {
	out := make([]int, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// StepsForTask returns the steps mapped to task in ascending order.
func (m StepTaskMapping) StepsForTask(task string) []int {
	var out []int
	for s, t := range m {
		if t == task {
			out = append(out, s)
		}
	}
	sort.Ints(out)
	return out
}

// Tasks returns the distinct task names in sorted order.
func (m StepTaskMapping) Tasks() []string {
	seen := make(map[string]struct{})
	for _, t := range m {
		seen[t] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// CheckBounds verifies every mapped step lies in [0, numSteps).
func (m StepTaskMapping) CheckBounds(numSteps int) error {
	for s := range m {
		if s < 0 || s >= numSteps {
			return fmt.Errorf("mapped step %d outside [0, %d)", s, numSteps)
		}
	}
	return nil
}

// CheckContiguous verifies the mapping covers exactly steps 0..len(m)-1.
func (m StepTaskMapping) CheckContiguous() error {
	return m.CheckBounds(len(m))
}
