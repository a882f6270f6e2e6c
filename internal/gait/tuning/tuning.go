// Package tuning aggregates validation failures into per-(task, variable,
// phase) statistics and proposes range adjustments.
package tuning

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/validate"
)

// DefaultBufferFactor widens a percentile-based bound by 20% of its magnitude.
const DefaultBufferFactor = 1.2

// Expansion says whether, and by how much, each bound must widen.
type Expansion struct {
	NeedsMin bool    `json:"needs_min_expansion"`
	MinBy    float64 `json:"min_expansion"`
	NeedsMax bool    `json:"needs_max_expansion"`
	MaxBy    float64 `json:"max_expansion"`
}

// OptimizationTarget is the tuning proposal for one (task, variable, phase).
type OptimizationTarget struct {
	Task           string     `json:"task"`
	Variable       string     `json:"variable"`
	Phase          float64    `json:"phase"`
	FailureCount   int        `json:"failure_count"`
	CurrentRange   gait.Range `json:"current_range"`
	Stats          ValueStats `json:"value_stats"`
	SuggestedRange gait.Range `json:"suggested_range"`
	Expansion      Expansion  `json:"expansion"`
}

// PhaseCount ranks phases by how many failures they carry.
type PhaseCount struct {
	Phase    float64 `json:"phase"`
	Failures int     `json:"failures"`
}

// VariableCount ranks variables by how many failures they carry.
type VariableCount struct {
	Variable string `json:"variable"`
	Failures int    `json:"failures"`
}

// TaskPassRate is the share of a task's steps with no failure.
type TaskPassRate struct {
	Task        string  `json:"task"`
	TotalSteps  int     `json:"total_steps"`
	FailedSteps int     `json:"failed_steps"`
	PassRate    float64 `json:"pass_rate"`
}

// OptimizationReport is the serialisable output of the aggregator. It holds
// no references to caller arrays.
type OptimizationReport struct {
	TotalFailures  int                  `json:"total_failures"`
	BufferFactor   float64              `json:"buffer_factor"`
	Targets        []OptimizationTarget `json:"optimization_targets"`
	PhaseSeverity  []PhaseCount         `json:"phase_severity"`
	VariableImpact []VariableCount      `json:"variable_impact"`
	TaskPassRates  []TaskPassRate       `json:"task_pass_rates"`
}

// Aggregator groups failures and proposes ranges.
//
// By default a widened bound is the percentile scaled by BufferFactor
// (p5*bf, p95*bf), clamped so the range never contracts. With Outward set
// the percentile is instead pushed away from the range by (bf-1)|p|, which
// widens for either sign.
type Aggregator struct {
	BufferFactor float64
	Outward      bool
}

// NewAggregator returns an Aggregator with the given buffer factor; values
// below 1 fall back to DefaultBufferFactor.
func NewAggregator(bufferFactor float64) *Aggregator {
	if bufferFactor < 1 || math.IsNaN(bufferFactor) {
		bufferFactor = DefaultBufferFactor
	}
	return &Aggregator{BufferFactor: bufferFactor}
}

// ExportDetailedPhaseFailures aggregates failures with the default buffer factor.
func ExportDetailedPhaseFailures(failures []validate.Violation, mapping gait.StepTaskMapping) OptimizationReport {
	return NewAggregator(DefaultBufferFactor).Export(failures, mapping)
}

type groupKey struct {
	task     string
	variable string
	phase    float64
}

// Export builds the report. Groups are keyed by (task, variable, phase);
// statistics cover the offending values, not the bounds.
func (a *Aggregator) Export(failures []validate.Violation, mapping gait.StepTaskMapping) OptimizationReport {
	report := OptimizationReport{
		TotalFailures: len(failures),
		BufferFactor:  a.BufferFactor,
	}

	groups := make(map[groupKey][]validate.Violation)
	phaseCounts := make(map[float64]int)
	varCounts := make(map[string]int)
	for _, f := range failures {
		k := groupKey{f.Task, f.Variable, f.Phase}
		groups[k] = append(groups[k], f)
		phaseCounts[f.Phase]++
		varCounts[f.Variable]++
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].task != keys[j].task {
			return keys[i].task < keys[j].task
		}
		if keys[i].variable != keys[j].variable {
			return keys[i].variable < keys[j].variable
		}
		return keys[i].phase < keys[j].phase
	})
	for _, k := range keys {
		report.Targets = append(report.Targets, a.target(k, groups[k]))
	}

	for phase, n := range phaseCounts {
		report.PhaseSeverity = append(report.PhaseSeverity, PhaseCount{Phase: phase, Failures: n})
	}
	sort.Slice(report.PhaseSeverity, func(i, j int) bool {
		x, y := report.PhaseSeverity[i], report.PhaseSeverity[j]
		if x.Failures != y.Failures {
			return x.Failures > y.Failures
		}
		return x.Phase < y.Phase
	})

	for name, n := range varCounts {
		report.VariableImpact = append(report.VariableImpact, VariableCount{Variable: name, Failures: n})
	}
	sort.Slice(report.VariableImpact, func(i, j int) bool {
		x, y := report.VariableImpact[i], report.VariableImpact[j]
		if x.Failures != y.Failures {
			return x.Failures > y.Failures
		}
		return x.Variable < y.Variable
	})

	report.TaskPassRates = passRates(failures, mapping)
	return report
}

func (a *Aggregator) target(k groupKey, group []validate.Violation) OptimizationTarget {
	values := make([]float64, len(group))
	for i, f := range group {
		values[i] = f.Value
	}
	stats := computeStats(values)
	// The group's bounds come from its first failure; failures checked
	// against one table share them.
	current := gait.Range{Min: group[0].ExpectedMin, Max: group[0].ExpectedMax}

	suggested := current
	var exp Expansion
	if stats.Min < current.Min {
		candidate := stats.P5 * a.BufferFactor
		if a.Outward {
			candidate = stats.P5 - (a.BufferFactor-1)*math.Abs(stats.P5)
		}
		suggested.Min = math.Min(current.Min, candidate)
		exp.MinBy = current.Min - suggested.Min
		exp.NeedsMin = exp.MinBy > 0
	}
	if stats.Max > current.Max {
		candidate := stats.P95 * a.BufferFactor
		if a.Outward {
			candidate = stats.P95 + (a.BufferFactor-1)*math.Abs(stats.P95)
		}
		suggested.Max = math.Max(current.Max, candidate)
		exp.MaxBy = suggested.Max - current.Max
		exp.NeedsMax = exp.MaxBy > 0
	}

	return OptimizationTarget{
		Task:           k.task,
		Variable:       k.variable,
		Phase:          k.phase,
		FailureCount:   len(group),
		CurrentRange:   current,
		Stats:          stats,
		SuggestedRange: suggested,
		Expansion:      exp,
	}
}

// passRates counts, per task, steps with no failure. A step-less failure
// marks every step of its task as failed. A stepped failure counts only
// when the mapping assigns that step to the failure's task.
func passRates(failures []validate.Violation, mapping gait.StepTaskMapping) []TaskPassRate {
	failed := make(map[string]map[int]struct{})
	mark := func(task string, step int) {
		if failed[task] == nil {
			failed[task] = make(map[int]struct{})
		}
		failed[task][step] = struct{}{}
	}
	tasks := make(map[string]struct{})
	for _, t := range mapping.Tasks() {
		tasks[t] = struct{}{}
	}
	for _, f := range failures {
		tasks[f.Task] = struct{}{}
		if step, ok := f.StepIndex(); ok {
			if task, mapped := mapping[step]; mapped && task == f.Task {
				mark(f.Task, step)
			}
			continue
		}
		for _, step := range mapping.StepsForTask(f.Task) {
			mark(f.Task, step)
		}
	}

	names := make([]string, 0, len(tasks))
	for t := range tasks {
		names = append(names, t)
	}
	sort.Strings(names)

	out := make([]TaskPassRate, 0, len(names))
	for _, task := range names {
		total := len(mapping.StepsForTask(task))
		nFailed := len(failed[task])
		rate := 0.0
		if total > 0 {
			rate = float64(total-nFailed) / float64(total)
		}
		out = append(out, TaskPassRate{Task: task, TotalSteps: total, FailedSteps: nFailed, PassRate: rate})
	}
	return out
}

// ApplySuggestions returns a new table with every target's suggested range
// written in. Targets at non-integer phases are rejected. The input table
// is not modified.
func ApplySuggestions(table *gait.RangeTable, report OptimizationReport) (*gait.RangeTable, error) {
	tasks := table.Map()
	for _, t := range report.Targets {
		phase := int(t.Phase)
		if float64(phase) != t.Phase {
			return nil, fmt.Errorf("target %s/%s has non-integer phase %g", t.Task, t.Variable, t.Phase)
		}
		if tasks[t.Task] == nil {
			tasks[t.Task] = gait.TaskRanges{}
		}
		if tasks[t.Task][phase] == nil {
			tasks[t.Task][phase] = gait.PhaseRanges{}
		}
		tasks[t.Task][phase][t.Variable] = t.SuggestedRange
	}
	return gait.NewRangeTable(tasks)
}
