package tractfilter

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/tractfilter/internal/pipeline/measure"
	"github.com/askiada/tractfilter/internal/report"
	"github.com/askiada/tractfilter/internal/toolrun"
)

const maxNote = 160

// Summary is the outcome of a run.
type Summary struct {
	Dir      string
	Label    string
	DryRun   bool
	Started  time.Time
	Finished time.Time
	Jobs     []*Job
	// Results are in table order: per tract, original, processed then inverse.
	Results []*VariantResult
	Timings []measure.StepTiming
}

// Failed returns the results whose tractogram could not be produced or counted,
// or whose endpoints could not be extracted.
func (s *Summary) Failed() []*VariantResult {
	res := []*VariantResult{}

	for _, r := range s.Results {
		if r.Failed() {
			res = append(res, r)
		}
	}

	return res
}

// Note explains a missing count or endpoint file.
func (r *VariantResult) Note(dryRun bool) string {
	switch {
	case r.Err != nil:
		return errorNote(r.Err)
	case r.EndpointsErr != nil:
		return "no endpoints: " + errorNote(r.EndpointsErr)
	case r.Count == nil && dryRun:
		return "dry run"
	default:
		return ""
	}
}

func errorNote(err error) string {
	msg := err.Error()

	var exitErr *toolrun.ExitError
	if errors.As(err, &exitErr) {
		msg = exitErr.Error()
	}

	if len(msg) > maxNote {
		msg = msg[:maxNote-3] + "..."
	}

	return msg
}

// Rows returns the fiber count table.
func (s *Summary) Rows() []report.Row {
	rows := make([]report.Row, 0, len(s.Results))

	for _, r := range s.Results {
		rows = append(rows, report.Row{
			Tract:   r.Job.Tract,
			Variant: r.Variant,
			File:    filepath.Base(r.Path),
			Count:   r.Count,
			Note:    r.Note(s.DryRun),
		})
	}

	return rows
}

// ROIs returns the statistics of every include mask, per tract.
func (s *Summary) ROIs() []report.ROI {
	res := []report.ROI{}

	for _, job := range s.Jobs {
		for _, stat := range job.ROIStats {
			roi := report.ROI{
				Tract:     job.Tract,
				File:      filepath.Base(stat.Path),
				Voxels:    stat.Stats.Voxels,
				NonZero:   stat.Stats.NonZero,
				VolumeMM3: stat.Stats.VolumeMM3,
			}

			switch {
			case stat.Err != nil:
				roi.Note = errorNote(stat.Err)
			case stat.Stats.Voxels == 0:
				roi.Note = "not checked"
			case stat.Stats.Empty():
				roi.Note = "empty mask"
			}

			res = append(res, roi)
		}
	}

	return res
}

// EndpointFiles lists the endpoint tractograms in table order.
func (s *Summary) EndpointFiles() []string {
	res := []string{}

	for _, r := range s.Results {
		if r.Endpoints != "" {
			res = append(res, r.Endpoints)
		}
	}

	return res
}

// ReportData gathers everything the report shows.
func (s *Summary) ReportData(title, runID string) *report.Data {
	timings := make([]report.Timing, 0, len(s.Timings))
	for _, t := range s.Timings {
		timings = append(timings, report.Timing{Step: t.Step, Items: t.Items, Average: t.Average, Total: t.Total})
	}

	return &report.Data{
		Title:     title,
		RunID:     runID,
		Dir:       s.Dir,
		Label:     s.Label,
		DryRun:    s.DryRun,
		Started:   s.Started,
		Finished:  s.Finished,
		Rows:      s.Rows(),
		ROIs:      s.ROIs(),
		Timings:   timings,
		Endpoints: s.EndpointFiles(),
	}
}
