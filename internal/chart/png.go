package chart

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/classify"
)

// matrixGrid adapts a ColorMatrix to plotter.GridXYZ. Columns are features
// and rows are steps.
type matrixGrid struct {
	m *classify.ColorMatrix
}

func (g matrixGrid) Dims() (c, r int)   { return len(g.m.Features()), g.m.Steps() }
func (g matrixGrid) Z(c, r int) float64 { return float64(g.m.At(r, c)) }
func (g matrixGrid) X(c int) float64    { return float64(c) }
func (g matrixGrid) Y(r int) float64    { return float64(r) }

// SaveMatrixPNG draws one cell per (step, feature), coloured by class. The
// image format follows the extension of path.
func SaveMatrixPNG(m *classify.ColorMatrix, path string) error {
	if m == nil || m.Steps() == 0 {
		return fmt.Errorf("chart: empty colour matrix")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s classification (%d steps)", m.Mode(), m.Steps())
	p.X.Label.Text = "Feature"
	p.Y.Label.Text = "Step"

	hm := plotter.NewHeatMap(matrixGrid{m: m}, classPalette{})
	hm.Min = float64(classify.Valid)
	hm.Max = float64(classify.OtherViolation)
	p.Add(hm)

	features := m.Features()
	ticks := make([]plot.Tick, len(features))
	for i, f := range features {
		ticks[i] = plot.Tick{Value: float64(i), Label: f}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.X.Tick.Label.Rotation = 0.5
	p.X.Tick.Label.XAlign = -1

	height := vg.Length(m.Steps())*0.25*vg.Inch + 2*vg.Inch
	if err := p.Save(10*vg.Inch, height, path); err != nil {
		return fmt.Errorf("chart: failed to save %s: %w", path, err)
	}
	return nil
}

// SaveFeaturePNG draws one line per step for a single feature across the
// gait cycle. colours holds one class per step, typically
// ColorMatrix.Column(feature).
func SaveFeaturePNG(data *gait.StepArray, colours []classify.Color, feature int, title, path string) error {
	if data == nil {
		return fmt.Errorf("chart: nil step data")
	}
	if feature < 0 || feature >= data.Features {
		return fmt.Errorf("chart: feature index %d out of range [0, %d)", feature, data.Features)
	}
	if len(colours) != data.Steps {
		return fmt.Errorf("chart: %d colours for %d steps", len(colours), data.Steps)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Gait cycle (%)"
	p.Y.Label.Text = "Value"
	p.X.Min, p.X.Max = 0, 100

	legendDone := make(map[classify.Color]bool, len(classify.AllColors))
	// Valid steps first so violations draw on top.
	for _, class := range classify.AllColors {
		for step := 0; step < data.Steps; step++ {
			if colours[step] != class {
				continue
			}
			column := data.Column(step, feature)
			pts := make(plotter.XYs, len(column))
			for i, v := range column {
				pts[i] = plotter.XY{X: gait.PhasePercent(i, data.Points), Y: v}
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return fmt.Errorf("chart: step %d: %w", step, err)
			}
			line.Color = RGBA(class)
			line.Width = vg.Points(1)
			p.Add(line)
			if !legendDone[class] {
				p.Legend.Add(class.String(), line)
				legendDone[class] = true
			}
		}
	}
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("chart: failed to save %s: %w", path, err)
	}
	return nil
}
