package gait

import (
	"fmt"
	"strings"
)

// Mode selects which family of biomechanical variables a StepArray holds.
type Mode string

// Mode constants
const (
	ModeKinematic Mode = "kinematic"
	ModeKinetic   Mode = "kinetic"
)

// ValidModes contains every accepted mode, in display order.
var ValidModes = []Mode{ModeKinematic, ModeKinetic}

// Column order is a contract with callers that build StepArray columns.
var (
	kinematicFeatures = []string{
		"hip_flexion_angle_contra",
		"knee_flexion_angle_contra",
		"ankle_flexion_angle_contra",
		"hip_flexion_angle_ipsi",
		"knee_flexion_angle_ipsi",
		"ankle_flexion_angle_ipsi",
	}
	kineticFeatures = []string{
		"hip_flexion_moment_contra",
		"knee_flexion_moment_contra",
		"ankle_flexion_moment_contra",
		"hip_flexion_moment_ipsi",
		"knee_flexion_moment_ipsi",
		"ankle_flexion_moment_ipsi",
	}
)

// ParseMode converts a user-supplied string to a Mode. Matching is case
// insensitive and ignores surrounding whitespace.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", &UnknownModeError{Mode: s}
	}
	return m, nil
}

// Valid reports whether m is one of ValidModes.
func (m Mode) Valid() bool {
	return m == ModeKinematic || m == ModeKinetic
}

func (m Mode) String() string { return string(m) }

// Features returns the ordered feature names for the mode. The returned
// slice is a copy and may be modified by the caller.
func (m Mode) Features() ([]string, error) {
	var src []string
	switch m {
	case ModeKinematic:
		src = kinematicFeatures
	case ModeKinetic:
		src = kineticFeatures
	default:
		return nil, &UnknownModeError{Mode: string(m)}
	}
	out := make([]string, len(src))
	copy(out, src)
	return out, nil
}

// FeatureIndex returns the column position of name within the mode's
// feature ordering, or -1 when the mode does not carry that variable.
func (m Mode) FeatureIndex(name string) int {
	var src []string
	switch m {
	case ModeKinematic:
		src = kinematicFeatures
	case ModeKinetic:
		src = kineticFeatures
	}
	for i, f := range src {
		if f == name {
			return i
		}
	}
	return -1
}

// ValidModesString returns a comma-separated list of modes for error messages.
func ValidModesString() string {
	names := make([]string, len(ValidModes))
	for i, m := range ValidModes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// MustFeatures is Features for callers holding a mode already known to be
// valid. It panics otherwise.
func (m Mode) MustFeatures() []string {
	f, err := m.Features()
	if err != nil {
		panic(fmt.Sprintf("gait: %v", err))
	}
	return f
}
