package gait

import (
	"fmt"
	"math"
	"sort"
)

// Range is an inclusive [Min, Max] envelope for one variable at one phase.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies within the range. Both ends are inclusive.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Width returns Max - Min.
func (r Range) Width() float64 { return r.Max - r.Min }

// Mid returns the midpoint of the range.
func (r Range) Mid() float64 { return (r.Min + r.Max) / 2 }

func (r Range) validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
		return fmt.Errorf("%w: NaN bound", ErrInvalidRange)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: min %g > max %g", ErrInvalidRange, r.Min, r.Max)
	}
	return nil
}

// PhaseRanges maps variable name to its range at a single phase.
type PhaseRanges map[string]Range

// TaskRanges maps phase percent to the variables constrained at that phase.
type TaskRanges map[int]PhaseRanges

// Phases returns the populated phases in ascending order.
func (t TaskRanges) Phases() []int {
	out := make([]int, 0, len(t))
	for p := range t {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Lookup returns the range for variable at phase, if present.
func (t TaskRanges) Lookup(phase int, variable string) (Range, bool) {
	vars, ok := t[phase]
	if !ok {
		return Range{}, false
	}
	r, ok := vars[variable]
	return r, ok
}

func (t TaskRanges) clone() TaskRanges {
	out := make(TaskRanges, len(t))
	for phase, vars := range t {
		cp := make(PhaseRanges, len(vars))
		for name, r := range vars {
			cp[name] = r
		}
		out[phase] = cp
	}
	return out
}

// RangeTable is an immutable task → phase → variable → Range mapping.
// Construct it with NewRangeTable; the zero value is an empty table.
type RangeTable struct {
	tasks map[string]TaskRanges
}

// NewRangeTable validates and deep-copies tasks into a RangeTable. Every
// populated entry must satisfy min <= max, and phases must lie in [0, 100].
func NewRangeTable(tasks map[string]TaskRanges) (*RangeTable, error) {
	rt := &RangeTable{tasks: make(map[string]TaskRanges, len(tasks))}
	for task, phases := range tasks {
		if task == "" {
			return nil, fmt.Errorf("%w: empty task name", ErrInvalidRange)
		}
		for phase, vars := range phases {
			if phase < 0 || phase > 100 {
				return nil, fmt.Errorf("%w: task %s phase %d outside [0, 100]", ErrInvalidRange, task, phase)
			}
			for name, r := range vars {
				if err := r.validate(); err != nil {
					return nil, fmt.Errorf("task %s phase %d variable %s: %w", task, phase, name, err)
				}
			}
		}
		rt.tasks[task] = phases.clone()
	}
	return rt, nil
}

// EmptyRangeTable returns a table with no tasks.
func EmptyRangeTable() *RangeTable {
	return &RangeTable{tasks: make(map[string]TaskRanges)}
}

// Tasks returns the task names in sorted order.
func (rt *RangeTable) Tasks() []string {
	if rt == nil {
		return nil
	}
	out := make([]string, 0, len(rt.tasks))
	for name := range rt.tasks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HasTask reports whether the table defines task.
func (rt *RangeTable) HasTask(task string) bool {
	if rt == nil {
		return false
	}
	_, ok := rt.tasks[task]
	return ok
}

// Task returns a copy of the ranges for task, or an *UnknownTaskError.
func (rt *RangeTable) Task(task string) (TaskRanges, error) {
	if !rt.HasTask(task) {
		return nil, &UnknownTaskError{Task: task, Available: rt.Tasks()}
	}
	return rt.tasks[task].clone(), nil
}

// Lookup returns the range for (task, phase, variable). Absent entries at
// any level report false; range tables may be partial.
func (rt *RangeTable) Lookup(task string, phase int, variable string) (Range, bool) {
	if rt == nil {
		return Range{}, false
	}
	phases, ok := rt.tasks[task]
	if !ok {
		return Range{}, false
	}
	return phases.Lookup(phase, variable)
}

// HasPhase reports whether task defines any variable at phase.
func (rt *RangeTable) HasPhase(task string, phase int) bool {
	if rt == nil {
		return false
	}
	_, ok := rt.tasks[task][phase]
	return ok
}

// Map returns a deep copy of the whole table.
func (rt *RangeTable) Map() map[string]TaskRanges {
	out := make(map[string]TaskRanges)
	if rt == nil {
		return out
	}
	for name, phases := range rt.tasks {
		out[name] = phases.clone()
	}
	return out
}
