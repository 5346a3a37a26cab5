package report

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

// HTMLChart builds an interactive bar chart of the counts, one series per
// variant.
func HTMLChart(d *Data) *charts.Bar {
	tracts := d.tracts()

	names := make([]string, len(tracts))
	for i, tract := range tracts {
		names[i] = trimTck(tract)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: d.Title, Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: d.Title, Subtitle: d.Dir}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Fibers"}),
	)
	bar.SetXAxis(names)

	for _, variant := range []string{VariantOriginal, VariantProcessed, VariantInverseProcessed} {
		data := make([]opts.BarData, len(tracts))

		for i, tract := range tracts {
			if n, ok := d.count(tract, variant); ok {
				data[i] = opts.BarData{Value: n}
			} else {
				data[i] = opts.BarData{Value: "-"}
			}
		}

		bar.AddSeries(VariantLabel(variant, d.Label), data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	}

	return bar
}

// WriteHTML writes a standalone page with the chart.
func WriteHTML(w io.Writer, d *Data) error {
	return errors.Wrap(HTMLChart(d).Render(w), "unable to render chart")
}

// SaveHTML writes the chart page to path.
func SaveHTML(path string, d *Data) error {
	return Save(path, d, WriteHTML)
}
