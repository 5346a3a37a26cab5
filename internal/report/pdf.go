package report

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"
)

// A4 portrait.
var (
	pageWidth  = vg.Points(595)
	pageHeight = vg.Points(842)
	margin     = vg.Points(50)
)

const (
	chartHeight = 300
	rowHeight   = 16
)

var variantColours = map[string]color.Color{
	VariantOriginal:         color.RGBA{R: 0x4c, G: 0x72, B: 0xb0, A: 0xff},
	VariantProcessed:        color.RGBA{R: 0x55, G: 0xa8, B: 0x68, A: 0xff},
	VariantInverseProcessed: color.RGBA{R: 0xc4, G: 0x4e, B: 0x52, A: 0xff},
}

// VariantLabel names a variant the way its files are suffixed.
func VariantLabel(variant, label string) string {
	switch variant {
	case VariantProcessed:
		return label
	case VariantInverseProcessed:
		return label + "_inv"
	default:
		return variant
	}
}

func (d *Data) tracts() []string {
	seen := map[string]bool{}
	res := []string{}

	for _, row := range d.Rows {
		if !seen[row.Tract] {
			seen[row.Tract] = true

			res = append(res, row.Tract)
		}
	}

	return res
}

func (d *Data) count(tract, variant string) (int, bool) {
	for _, row := range d.Rows {
		if row.Tract == tract && row.Variant == variant && row.Count != nil {
			return *row.Count, true
		}
	}

	return 0, false
}

// Chart builds a grouped bar chart of the counts, one group per tract.
func Chart(d *Data) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Fiber count per tract"
	p.Y.Label.Text = "Fibers"
	p.Y.Min = 0
	p.Legend.Top = true

	tracts := d.tracts()
	width := vg.Points(18)

	for i, variant := range []string{VariantOriginal, VariantProcessed, VariantInverseProcessed} {
		values := make(plotter.Values, len(tracts))
		for j, tract := range tracts {
			if n, ok := d.count(tract, variant); ok {
				values[j] = float64(n)
			}
		}

		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to create %s bars", variant)
		}

		bars.LineStyle.Width = vg.Length(0)
		bars.Color = variantColours[variant]
		bars.Offset = vg.Length(i-1) * width

		p.Add(bars)
		p.Legend.Add(VariantLabel(variant, d.Label), bars)
	}

	names := make([]string, len(tracts))
	for i, tract := range tracts {
		names[i] = trimTck(tract)
	}

	p.NominalX(names...)

	return p, nil
}

func trimTck(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

// pdfPage writes text top to bottom and opens a new page when the current one
// is full.
type pdfPage struct {
	canvas *vgpdf.Canvas
	dc     draw.Canvas
	y      vg.Length
	base   text.Style
}

func newPDFPage() *pdfPage {
	canvas := vgpdf.New(pageWidth, pageHeight)

	return &pdfPage{
		canvas: canvas,
		dc:     draw.New(canvas),
		y:      pageHeight - margin,
		base:   plot.New().Title.TextStyle,
	}
}

func (pg *pdfPage) style(size float64, align text.XAlignment) text.Style {
	sty := pg.base
	sty.Font.Size = vg.Points(size)
	sty.XAlign = align
	sty.YAlign = text.YTop

	return sty
}

func (pg *pdfPage) newPage() {
	pg.canvas.NextPage()
	pg.y = pageHeight - margin
}

// reserve opens a new page unless h fits below the cursor.
func (pg *pdfPage) reserve(h vg.Length) {
	if pg.y-h < margin {
		pg.newPage()
	}
}

func (pg *pdfPage) text(x vg.Length, size float64, align text.XAlignment, s string) {
	pg.dc.FillText(pg.style(size, align), vg.Point{X: x, Y: pg.y}, s)
}

func (pg *pdfPage) line(s string, size float64) {
	pg.reserve(vg.Points(size + 4))
	pg.text(margin, size, text.XLeft, s)
	pg.y -= vg.Points(size + 4)
}

func (pg *pdfPage) rule() {
	sty := draw.LineStyle{Color: color.Gray{Y: 0x80}, Width: vg.Points(0.5)}
	pg.dc.StrokeLine2(sty, margin, pg.y, pageWidth-margin, pg.y)
}

func (pg *pdfPage) gap(h float64) {
	pg.y -= vg.Points(h)
}

// column of a table. right aligned columns are anchored on their right edge.
type column struct {
	title string
	x     vg.Length
	right bool
}

func (pg *pdfPage) table(cols []column, rows [][]string) {
	header := func() {
		pg.reserve(2 * rowHeight)

		for _, col := range cols {
			pg.cell(col, 10, col.title)
		}

		pg.y -= rowHeight - 2
		pg.rule()
		pg.y -= 4
	}

	header()

	for _, row := range rows {
		if pg.y-rowHeight < margin {
			pg.newPage()
			header()
		}

		for i, col := range cols {
			if i < len(row) {
				pg.cell(col, 9, row[i])
			}
		}

		pg.y -= rowHeight
	}
}

func (pg *pdfPage) cell(col column, size float64, s string) {
	align := text.XLeft
	if col.right {
		align = text.XRight
	}

	pg.text(col.x, size, align, s)
}

func (pg *pdfPage) chart(p *plot.Plot) {
	h := vg.Points(chartHeight)
	pg.reserve(h)

	area := draw.Canvas{
		Canvas: pg.dc.Canvas,
		Rectangle: vg.Rectangle{
			Min: vg.Point{X: margin, Y: pg.y - h},
			Max: vg.Point{X: pageWidth - margin, Y: pg.y},
		},
	}
	p.Draw(area)

	pg.y -= h
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Local().Format("2006-01-02 15:04:05")
}

// WritePDF renders the report: the chart and the count table, then the ROI
// masks, endpoint files and step timings when there are any.
func WritePDF(w io.Writer, d *Data) error {
	pg := newPDFPage()

	title := d.Title
	if d.DryRun {
		title += " (dry run)"
	}

	pg.text(margin, 18, text.XLeft, title)
	pg.gap(28)
	pg.line("Directory: "+d.Dir, 9)

	if d.RunID != "" {
		pg.line(fmt.Sprintf("Run %s, started %s, took %s", d.RunID, formatTime(d.Started), d.Duration().Round(time.Millisecond)), 9)
	}

	pg.gap(10)

	if len(d.Rows) > 0 {
		chart, err := Chart(d)
		if err != nil {
			return err
		}

		pg.chart(chart)
		pg.gap(20)
	}

	rows := make([][]string, 0, len(d.Rows))
	notes := []string{}

	for i, row := range d.Rows {
		file := row.File
		if row.Note != "" {
			notes = append(notes, fmt.Sprintf("[%d] %s: %s", len(notes)+1, row.File, row.Note))
			file = fmt.Sprintf("%s [%d]", file, len(notes))
		}

		rows = append(rows, []string{file, FormatCount(row.Count), d.retention(i)})
	}

	pg.table([]column{
		{title: "TCK File", x: margin},
		{title: "Fiber Count", x: vg.Points(400), right: true},
		{title: "Retention", x: pageWidth - margin, right: true},
	}, rows)

	if len(notes) > 0 {
		pg.gap(8)

		for _, note := range notes {
			pg.line(note, 8)
		}
	}

	if len(d.ROIs) > 0 || len(d.Endpoints) > 0 || len(d.Timings) > 0 {
		pg.newPage()
		writeDetails(pg, d)
	}

	if _, err := pg.canvas.WriteTo(w); err != nil {
		return errors.Wrap(err, "unable to write pdf")
	}

	return nil
}

func writeDetails(pg *pdfPage, d *Data) {
	if len(d.ROIs) > 0 {
		pg.line("ROI masks", 14)
		pg.gap(6)

		rows := make([][]string, 0, len(d.ROIs))
		for _, roi := range d.ROIs {
			rows = append(rows, []string{
				trimTck(roi.Tract),
				roi.File,
				printer.Sprintf("%d", roi.NonZero),
				printer.Sprintf("%.1f", roi.VolumeMM3),
				roi.Note,
			})
		}

		pg.table([]column{
			{title: "Tract", x: margin},
			{title: "Mask", x: vg.Points(110)},
			{title: "Voxels", x: vg.Points(330), right: true},
			{title: "Volume (mm3)", x: vg.Points(420), right: true},
			{title: "Note", x: vg.Points(435)},
		}, rows)
		pg.gap(16)
	}

	if len(d.Endpoints) > 0 {
		pg.line("Endpoint files", 14)
		pg.gap(6)

		for _, path := range d.Endpoints {
			pg.line(path, 9)
		}

		pg.gap(16)
	}

	if len(d.Timings) > 0 {
		pg.line("Stage timings", 14)
		pg.gap(6)

		rows := make([][]string, 0, len(d.Timings))
		for _, timing := range d.Timings {
			rows = append(rows, []string{
				timing.Step,
				printer.Sprintf("%d", timing.Items),
				timing.Average.String(),
				timing.Total.String(),
			})
		}

		pg.table([]column{
			{title: "Step", x: margin},
			{title: "Items", x: vg.Points(300), right: true},
			{title: "Average", x: vg.Points(420), right: true},
			{title: "Total", x: pageWidth - margin, right: true},
		}, rows)
	}
}

// SavePDF writes the PDF report to path.
func SavePDF(path string, d *Data) error {
	return Save(path, d, WritePDF)
}
