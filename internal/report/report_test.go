package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/askiada/tractfilter/internal/report"
)

func intPtr(n int) *int {
	return &n
}

func sampleData() *report.Data {
	started := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	return &report.Data{
		Title:    "Fiber Counts",
		RunID:    "4f1c",
		Dir:      "/data/sub01",
		Label:    "ICPED",
		Started:  started,
		Finished: started.Add(2 * time.Second),
		Rows: []report.Row{
			{Tract: "CST_L.tck", Variant: report.VariantOriginal, File: "CST_L.tck", Count: intPtr(12000)},
			{Tract: "CST_L.tck", Variant: report.VariantProcessed, File: "CST_L_ICPED.tck", Count: intPtr(3000)},
			{Tract: "CST_L.tck", Variant: report.VariantInverseProcessed, File: "CST_L_ICPED_inv.tck", Count: intPtr(9000)},
			{Tract: "CST_R.tck", Variant: report.VariantOriginal, File: "CST_R.tck", Count: intPtr(0)},
			{Tract: "CST_R.tck", Variant: report.VariantProcessed, File: "CST_R_ICPED.tck", Note: "tckedit exited with code 1"},
			{Tract: "CST_R.tck", Variant: report.VariantInverseProcessed, File: "CST_R_ICPED_inv.tck", Count: intPtr(0)},
		},
		ROIs: []report.ROI{
			{Tract: "CST_L.tck", File: "LPIC_binary.nii.gz", Voxels: 1000, NonZero: 120, VolumeMM3: 120},
			{Tract: "CST_R.tck", File: "RPIC_binary.nii.gz", Voxels: 1000, Note: "empty mask"},
		},
		Timings: []report.Timing{
			{Step: "filter", Items: 4, Average: time.Second, Total: 4 * time.Second},
		},
		Endpoints: []string{"/data/sub01/CST_L_ICPED_ep.tck", "/data/sub01/CST_L_ICPED_inv_ep.tck"},
	}
}

func TestFormatCount(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		count *int
		want  string
	}{
		"unknown":   {count: nil, want: "n/a"},
		"zero":      {count: intPtr(0), want: "0"},
		"small":     {count: intPtr(999), want: "999"},
		"thousands": {count: intPtr(1234567), want: "1,234,567"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, report.FormatCount(tc.count))
		})
	}
}

func TestRetention(t *testing.T) {
	t.Parallel()

	d := sampleData()

	tests := map[string]struct {
		row    int
		want   float64
		wantOK bool
	}{
		"original has no retention": {row: 0},
		"processed":                 {row: 1, want: 0.25, wantOK: true},
		"inverse":                   {row: 2, want: 0.75, wantOK: true},
		"empty original":            {row: 5},
		"unknown count":             {row: 4},
		"original of second tract":  {row: 3},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, ok := d.Retention(tc.row)
			assert.Equal(t, tc.wantOK, ok)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestFormatRetention(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "25.0%", report.FormatRetention(0.25, true))
	assert.Empty(t, report.FormatRetention(0.25, false))
}

func TestVariantLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "original", report.VariantLabel(report.VariantOriginal, "ICPED"))
	assert.Equal(t, "ICPED", report.VariantLabel(report.VariantProcessed, "ICPED"))
	assert.Equal(t, "ICPED_inv", report.VariantLabel(report.VariantInverseProcessed, "ICPED"))
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, sampleData()))

	want := strings.Join([]string{
		"TCK File,Fiber Count,Retention,Note",
		"CST_L.tck,12000,,",
		"CST_L_ICPED.tck,3000,0.2500,",
		"CST_L_ICPED_inv.tck,9000,0.7500,",
		"CST_R.tck,0,,",
		"CST_R_ICPED.tck,n/a,,tckedit exited with code 1",
		"CST_R_ICPED_inv.tck,0,,",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestWritePDF(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		data *report.Data
	}{
		"full report": {data: sampleData()},
		"no rows":     {data: &report.Data{Title: "Fiber Counts", Dir: "/empty"}},
		"dry run": {data: func() *report.Data {
			d := sampleData()
			d.DryRun = true
			d.ROIs, d.Timings, d.Endpoints = nil, nil, nil

			return d
		}()},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, report.WritePDF(&buf, tc.data))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
		})
	}
}

func TestWritePDFManyRows(t *testing.T) {
	t.Parallel()

	d := &report.Data{Title: "Fiber Counts", Dir: "/data", Label: "ICPED"}
	for i := range 40 {
		tract := "T" + strings.Repeat("x", i%5) + ".tck"
		d.Rows = append(d.Rows, report.Row{Tract: tract, Variant: report.VariantOriginal, File: tract, Count: intPtr(i)})
	}

	var buf bytes.Buffer
	require.NoError(t, report.WritePDF(&buf, d))
	assert.NotZero(t, buf.Len())
}

func TestSavePDFCreatesDirectories(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "fiber_counts.pdf")
	require.NoError(t, report.SavePDF(path, sampleData()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestWriteHTML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, report.WriteHTML(&buf, sampleData()))

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "ICPED_inv")
	assert.Contains(t, html, "CST_L")
}

func TestManifest(t *testing.T) {
	t.Parallel()

	d := sampleData()
	outputs := []report.Output{{Kind: "pdf", Path: "/data/sub01/fiber_counts.pdf"}}

	var buf bytes.Buffer
	require.NoError(t, report.WriteManifest(&buf, report.NewManifest(d, outputs)))

	var got report.Manifest
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "4f1c", got.RunID)
	assert.Equal(t, outputs, got.Outputs)
	require.Len(t, got.Rows, 6)
	assert.Nil(t, got.Rows[4].Count)
	assert.Equal(t, "tckedit exited with code 1", got.Rows[4].Note)
	require.NotNil(t, got.Rows[1].Retention)
	assert.InDelta(t, 0.25, *got.Rows[1].Retention, 1e-9)
	assert.Nil(t, got.Rows[0].Retention)
	require.Len(t, got.Timings, 1)
	assert.Equal(t, "1s", got.Timings[0].Average)
	assert.NotContains(t, buf.String(), "dry_run")
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	md := report.Markdown(sampleData())

	assert.Contains(t, md, "# Fiber Counts\n")
	assert.Contains(t, md, "| CST_L.tck | 12,000 |  |\n")
	assert.Contains(t, md, "| CST_L_ICPED.tck | 3,000 | 25.0% |\n")
	assert.Contains(t, md, "| CST_R_ICPED.tck (tckedit exited with code 1) | n/a |  |\n")
	assert.Contains(t, md, "- `/data/sub01/CST_L_ICPED_ep.tck`\n")
	assert.Contains(t, md, "## ROI masks")
}

func TestRenderTerminal(t *testing.T) {
	t.Parallel()

	out, err := report.RenderTerminal("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n", 80)
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
}
