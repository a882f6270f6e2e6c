package validate

import "fmt"

// Violation records one value falling outside its expected range.
//
// Step is nil for task-level failures, which apply to every step mapped to
// Task. Violations produced by Validator always carry a step.
type Violation struct {
	Task        string  `json:"task"`
	Step        *int    `json:"step,omitempty"`
	Variable    string  `json:"variable"`
	Phase       float64 `json:"phase"`
	Value       float64 `json:"value"`
	ExpectedMin float64 `json:"expected_min"`
	ExpectedMax float64 `json:"expected_max"`
	Reason      string  `json:"failure_reason"`
}

// StepIndex returns the step the violation applies to, if it names one.
func (v Violation) StepIndex() (int, bool) {
	if v.Step == nil {
		return 0, false
	}
	return *v.Step, true
}

// TaskLevel returns a copy of v with the step index removed.
func (v Violation) TaskLevel() Violation {
	v.Step = nil
	return v
}

// AtStep returns a copy of v bound to step.
func (v Violation) AtStep(step int) Violation {
	s := step
	v.Step = &s
	return v
}

func failureReason(value, min, max float64) string {
	if value < min {
		return fmt.Sprintf("value %.4f below minimum %.4f", value, min)
	}
	return fmt.Sprintf("value %.4f above maximum %.4f", value, max)
}
