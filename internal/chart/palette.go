// Package chart renders classification results as PNG plots (gonum/plot) and
// interactive HTML pages (go-echarts).
package chart

import (
	"fmt"
	"image/color"

	"github.com/banshee-data/gait.report/internal/gait/classify"
)

var palette = map[classify.Color]color.RGBA{
	classify.Valid:          {R: 0x2e, G: 0x9e, B: 0x44, A: 0xff}, // green
	classify.LocalViolation: {R: 0xd3, G: 0x2f, B: 0x2f, A: 0xff}, // red
	classify.OtherViolation: {R: 0xf4, G: 0x8f, B: 0xb1, A: 0xff}, // pink
}

// RGBA returns the display colour for c. Unknown values render grey.
func RGBA(c classify.Color) color.RGBA {
	if rgba, ok := palette[c]; ok {
		return rgba
	}
	return color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}
}

// Hex returns the display colour for c as "#rrggbb".
func Hex(c classify.Color) string {
	rgba := RGBA(c)
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

// classPalette implements gonum palette.Palette in classify.AllColors order.
type classPalette struct{}

func (classPalette) Colors() []color.Color {
	out := make([]color.Color, len(classify.AllColors))
	for i, c := range classify.AllColors {
		out[i] = RGBA(c)
	}
	return out
}
