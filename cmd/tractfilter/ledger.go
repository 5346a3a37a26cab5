package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/askiada/tractfilter/internal/report"
	"github.com/askiada/tractfilter/internal/store"
	"github.com/askiada/tractfilter/internal/tractfilter"
)

func recordResult(ledger *store.Store, runID string, dryRun bool) tractfilter.LedgerFunc {
	return func(ctx context.Context, res *tractfilter.VariantResult) error {
		return ledger.AddResult(ctx, runID, store.Result{
			Position:  res.Position(),
			Tract:     res.Job.Tract,
			Variant:   res.Variant,
			File:      filepath.Base(res.Path),
			Endpoints: res.Endpoints,
			Count:     res.Count,
			Error:     res.Note(dryRun),
		})
	}
}

func finishRun(ctx context.Context, ledger *store.Store, runID string, summary *tractfilter.Summary, runErr error) error {
	status := store.StatusSucceeded

	switch {
	case runErr != nil:
		status = store.StatusFailed
	case len(summary.Failed()) > 0:
		status = store.StatusPartial
	}

	finished := time.Now()

	if summary != nil {
		timings := make([]store.Timing, 0, len(summary.Timings))
		for _, t := range summary.Timings {
			timings = append(timings, store.Timing{Step: t.Step, Items: t.Items, Average: t.Average, Total: t.Total})
		}

		err := ledger.AddTimings(ctx, runID, timings)
		if err != nil {
			return err
		}

		if !summary.Finished.IsZero() {
			finished = summary.Finished
		}
	}

	return ledger.FinishRun(ctx, runID, finished, status)
}

// reportData rebuilds the report of a recorded run. ROI statistics are not
// recorded.
func reportData(run *store.Run) *report.Data {
	data := &report.Data{
		Title:    run.Title,
		RunID:    run.ID,
		Dir:      run.Dir,
		Label:    run.Label,
		DryRun:   run.DryRun,
		Started:  run.Started,
		Finished: run.Finished,
	}

	for _, res := range run.Results {
		data.Rows = append(data.Rows, report.Row{
			Tract:   res.Tract,
			Variant: res.Variant,
			File:    res.File,
			Count:   res.Count,
			Note:    res.Error,
		})

		if res.Endpoints != "" {
			data.Endpoints = append(data.Endpoints, res.Endpoints)
		}
	}

	for _, t := range run.Timings {
		data.Timings = append(data.Timings, report.Timing{Step: t.Step, Items: t.Items, Average: t.Average, Total: t.Total})
	}

	return data
}
