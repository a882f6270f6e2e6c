package classify

import (
	"fmt"

	"github.com/banshee-data/gait.report/internal/gait"
)

// Color is the classification of one (step, feature) pair. It carries no
// presentation; internal/chart owns the palette.
type Color uint8

const (
	// Valid means the step has no violations at all.
	Valid Color = iota
	// LocalViolation means this feature failed in this step.
	LocalViolation
	// OtherViolation means the step failed, but in a different feature.
	OtherViolation
)

// AllColors lists every Color in declaration order.
var AllColors = []Color{Valid, LocalViolation, OtherViolation}

func (c Color) String() string {
	switch c {
	case Valid:
		return "valid"
	case LocalViolation:
		return "local_violation"
	case OtherViolation:
		return "other_violation"
	default:
		return fmt.Sprintf("Color(%d)", uint8(c))
	}
}

// MarshalText encodes the colour by name.
func (c Color) MarshalText() ([]byte, error) {
	switch c {
	case Valid, LocalViolation, OtherViolation:
		return []byte(c.String()), nil
	}
	return nil, fmt.Errorf("invalid color %d", uint8(c))
}

// UnmarshalText decodes a colour name.
func (c *Color) UnmarshalText(b []byte) error {
	for _, candidate := range AllColors {
		if candidate.String() == string(b) {
			*c = candidate
			return nil
		}
	}
	return fmt.Errorf("invalid color %q", string(b))
}

// ColorMatrix is a [steps, features] grid of colours for one mode.
type ColorMatrix struct {
	mode     gait.Mode
	features []string
	colors   [][]Color
}

func newColorMatrix(mode gait.Mode, features []string, steps int) *ColorMatrix {
	colors := make([][]Color, steps)
	for i := range colors {
		colors[i] = make([]Color, len(features))
	}
	return &ColorMatrix{mode: mode, features: features, colors: colors}
}

// Mode returns the mode the matrix was classified under.
func (m *ColorMatrix) Mode() gait.Mode { return m.mode }

// Steps returns the number of rows.
func (m *ColorMatrix) Steps() int { return len(m.colors) }

// Features returns the column names in order.
func (m *ColorMatrix) Features() []string {
	out := make([]string, len(m.features))
	copy(out, m.features)
	return out
}

// At returns the colour of (step, feature index).
func (m *ColorMatrix) At(step, feature int) Color { return m.colors[step][feature] }

// Row returns a copy of one step's colours.
func (m *ColorMatrix) Row(step int) []Color {
	out := make([]Color, len(m.colors[step]))
	copy(out, m.colors[step])
	return out
}

// Column returns one feature's colour for every step.
func (m *ColorMatrix) Column(feature int) []Color {
	out := make([]Color, len(m.colors))
	for s, row := range m.colors {
		out[s] = row[feature]
	}
	return out
}

// Counts tallies how many cells carry each colour.
func (m *ColorMatrix) Counts() map[Color]int {
	out := make(map[Color]int, len(AllColors))
	for _, row := range m.colors {
		for _, c := range row {
			out[c]++
		}
	}
	return out
}

// Rows returns a deep copy of the grid, suitable for JSON encoding.
func (m *ColorMatrix) Rows() [][]Color {
	out := make([][]Color, len(m.colors))
	for i := range m.colors {
		out[i] = m.Row(i)
	}
	return out
}
