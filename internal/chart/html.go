package chart

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/gait.report/internal/gait/classify"
)

// MatrixHeatmap builds an interactive (step, feature) grid as a coloured
// scatter, one series per class.
func MatrixHeatmap(m *classify.ColorMatrix, title string) *charts.Scatter {
	features := m.Features()
	counts := m.Counts()

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1000px", Height: fmt.Sprintf("%dpx", 200+m.Steps()*18)}),
		charts.WithTitleOpts(opts.Title{
			Title: title,
			Subtitle: fmt.Sprintf("mode=%s steps=%d valid=%d local=%d other=%d",
				m.Mode(), m.Steps(), counts[classify.Valid], counts[classify.LocalViolation], counts[classify.OtherViolation]),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: features, Name: "Feature", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Step", Min: -1, Max: m.Steps(), NameLocation: "middle", NameGap: 30}),
	)

	for _, class := range classify.AllColors {
		pts := make([]opts.ScatterData, 0, counts[class])
		for step := 0; step < m.Steps(); step++ {
			for fi, f := range features {
				if m.At(step, fi) == class {
					pts = append(pts, opts.ScatterData{Value: []interface{}{f, step}})
				}
			}
		}
		scatter.AddSeries(class.String(), pts,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: Hex(class)}),
		)
	}
	return scatter
}

// WriteMatrixHTML renders MatrixHeatmap as a standalone HTML page.
func WriteMatrixHTML(w io.Writer, m *classify.ColorMatrix, title string) error {
	if m == nil {
		return fmt.Errorf("chart: nil colour matrix")
	}
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(MatrixHeatmap(m, title))
	return page.Render(w)
}
