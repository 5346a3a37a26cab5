// Package report renders the fiber counts of a run: the PDF table and chart,
// and the optional CSV, HTML, manifest and terminal summaries.
package report

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Variants, in the order they appear for each tract.
const (
	VariantOriginal         = "original"
	VariantProcessed        = "processed"
	VariantInverseProcessed = "inverse_processed"
)

// NotAvailable is printed for unknown counts.
const NotAvailable = "n/a"

// Row is one line of the fiber count table.
type Row struct {
	Tract   string
	Variant string
	File    string
	// Count is nil when the tractogram could not be produced or read.
	Count *int
	Note  string
}

// ROI summarises one mask used to filter a tract.
type ROI struct {
	Tract     string
	File      string
	Voxels    int
	NonZero   int
	VolumeMM3 float64
	Note      string
}

// Timing is the time spent in one pipeline step.
type Timing struct {
	Step    string
	Items   int64
	Average time.Duration
	Total   time.Duration
}

// Data is everything a report shows.
type Data struct {
	Title     string
	RunID     string
	Dir       string
	Label     string
	DryRun    bool
	Started   time.Time
	Finished  time.Time
	Rows      []Row
	ROIs      []ROI
	Timings   []Timing
	Endpoints []string
}

// Retention returns the count of row i relative to the original tractogram of
// the same tract. ok is false for original rows and unknown counts.
func (d *Data) Retention(i int) (float64, bool) {
	row := d.Rows[i]
	if row.Variant == VariantOriginal || row.Count == nil {
		return 0, false
	}

	for _, other := range d.Rows {
		if other.Tract != row.Tract || other.Variant != VariantOriginal || other.Count == nil {
			continue
		}

		if *other.Count == 0 {
			return 0, false
		}

		return float64(*row.Count) / float64(*other.Count), true
	}

	return 0, false
}

// Duration is the wall time of the run.
func (d *Data) Duration() time.Duration {
	if d.Finished.IsZero() || d.Started.IsZero() {
		return 0
	}

	return d.Finished.Sub(d.Started)
}

var printer = message.NewPrinter(language.English)

// FormatCount groups thousands, or returns NotAvailable for unknown counts.
func FormatCount(count *int) string {
	if count == nil {
		return NotAvailable
	}

	return printer.Sprintf("%d", *count)
}

// FormatRetention renders a ratio as a percentage with one decimal.
func FormatRetention(ratio float64, ok bool) string {
	if !ok {
		return ""
	}

	return printer.Sprintf("%.1f%%", ratio*100)
}

func (d *Data) retention(i int) string {
	return FormatRetention(d.Retention(i))
}

// Save creates path and writes a report into it with write.
func Save(path string, d *Data, write func(io.Writer, *Data) error) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "unable to create %s", dir)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "unable to close %s", path)
		}
	}()

	if err := write(file, d); err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}

	return nil
}
