package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/askiada/tractfilter/internal/config"
	"github.com/askiada/tractfilter/internal/logging"
	"github.com/askiada/tractfilter/internal/metrics"
	"github.com/askiada/tractfilter/internal/pipeline/drawer"
	"github.com/askiada/tractfilter/internal/report"
	"github.com/askiada/tractfilter/internal/store"
	"github.com/askiada/tractfilter/internal/toolrun"
	"github.com/askiada/tractfilter/internal/tractfilter"
)

var runCmd = &cobra.Command{
	Use:   "run [dir]",
	Short: "Filter the tractograms of a directory and write the report",
	Long: `Filters every configured tractogram of dir (the current directory by
default), counts the fibers of the original, processed and inverse processed
tractograms and writes the PDF report into dir.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		return run(cmd.Context(), cfg, dir, cmd.OutOrStdout(), cmd.ErrOrStderr(), nil)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.Int("jobs", 1, "number of tracts filtered concurrently")
	flags.Int("threads", 0, "threads given to each MRtrix3 tool, 0 for the tool default")
	flags.Bool("fail-fast", false, "stop at the first tool failure, without writing the report")
	flags.Bool("dry-run", false, "log the tool commands without running them")
	flags.Bool("skip-empty-rois", false, "do not filter a tract when one of its ROI masks is empty")
	flags.String("label", "", "label of the filtered tractograms")
	flags.String("title", "", "report title")
	flags.String("out", "", "PDF report path, relative to dir")
	flags.String("csv", "", "CSV table path, relative to dir")
	flags.String("html", "", "HTML chart path, relative to dir")
	flags.String("manifest", "", "YAML manifest path, relative to dir")
	flags.String("graph", "", "DOT drawing of the pipeline, relative to dir")
	flags.String("metrics-file", "", "Prometheus textfile written at the end of the run")
}

// run processes dir. runner replaces the external tools when it is not nil.
func run(ctx context.Context, cfg *config.Config, dir string, stdout, stderr io.Writer, runner toolrun.Runner) error {
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	ctx = logging.WithLogger(ctx, logger)

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve %s", dir)
	}

	m := metrics.New()

	opts := []tractfilter.Option{tractfilter.WithLogger(logger), tractfilter.WithMetrics(m)}
	if cfg.Report.Graph != "" {
		opts = append(opts, tractfilter.WithDrawer(drawer.NewDOTDrawer(resolve(absDir, cfg.Report.Graph))))
	}

	runID := uuid.NewString()

	var ledger *store.Store
	if cfg.Store.Path != "" {
		ledger, err = store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer ledger.Close()

		opts = append(opts, tractfilter.WithLedger(recordResult(ledger, runID, cfg.Pipeline.DryRun)))
	}

	preflight := runner == nil
	if runner == nil {
		runner = toolrun.NewExecRunner()
		if cfg.Pipeline.DryRun {
			runner = toolrun.DryRunner{}
		}
	}

	processor := tractfilter.NewProcessor(cfg, toolrun.NewResilientRunner(runner, cfg.Tools, m, logger), opts...)

	if preflight && !cfg.Pipeline.DryRun {
		err = toolrun.LookPath(processor.Binaries()...)
		if err != nil {
			return err
		}
	}

	if ledger != nil {
		err = ledger.CreateRun(ctx, store.Run{
			ID:      runID,
			Dir:     absDir,
			Title:   cfg.Report.Title,
			Label:   cfg.Pipeline.Label,
			DryRun:  cfg.Pipeline.DryRun,
			Started: time.Now(),
		})
		if err != nil {
			return err
		}
	}

	summary, runErr := processor.Run(ctx, absDir)

	if ledger != nil {
		// the run is recorded even when ctx was cancelled
		err = finishRun(context.WithoutCancel(ctx), ledger, runID, summary, runErr)
		if err != nil {
			logger.Error("unable to finish run in ledger", slog.String("run", runID), slog.Any("error", err))
		}
	}

	if cfg.Metrics.Textfile != "" {
		err = m.WriteTextfile(cfg.Metrics.Textfile)
		if err != nil {
			logger.Error("unable to write metrics", slog.String("path", cfg.Metrics.Textfile), slog.Any("error", err))
		}
	}

	if runErr != nil {
		return runErr
	}

	data := summary.ReportData(cfg.Report.Title, runID)

	outputs, err := writeReports(absDir, cfg.Report, data)
	if err != nil {
		return err
	}

	for _, out := range outputs {
		logger.Info("report written", slog.String("kind", out.Kind), slog.String("path", out.Path))
	}

	for _, failed := range summary.Failed() {
		logger.Warn("incomplete result",
			slog.String("file", filepath.Base(failed.Path)), slog.String("reason", failed.Note(summary.DryRun)))
	}

	return printMarkdown(stdout, report.Markdown(data))
}

// resolve makes path relative to dir unless it is absolute.
func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(dir, path)
}

func writeReports(dir string, cfg config.ReportConfig, data *report.Data) ([]report.Output, error) {
	outputs := []report.Output{}

	writers := []struct {
		kind string
		path string
		save func(path string, d *report.Data) error
	}{
		{kind: "pdf", path: cfg.PDF, save: report.SavePDF},
		{kind: "csv", path: cfg.CSV, save: report.SaveCSV},
		{kind: "html", path: cfg.HTML, save: report.SaveHTML},
	}

	for _, w := range writers {
		if w.path == "" {
			continue
		}

		path := resolve(dir, w.path)

		err := w.save(path, data)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to write %s report", w.kind)
		}

		outputs = append(outputs, report.Output{Kind: w.kind, Path: path})
	}

	if cfg.Graph != "" {
		outputs = append(outputs, report.Output{Kind: "graph", Path: resolve(dir, cfg.Graph)})
	}

	if cfg.Manifest != "" {
		path := resolve(dir, cfg.Manifest)

		err := report.SaveManifest(path, data, outputs)
		if err != nil {
			return nil, errors.Wrap(err, "unable to write manifest")
		}

		outputs = append(outputs, report.Output{Kind: "manifest", Path: path})
	}

	return outputs, nil
}

// printMarkdown writes md, styled when w is a terminal.
func printMarkdown(w io.Writer, md string) error {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		width, _, err := term.GetSize(int(f.Fd()))
		if err != nil {
			width = 80
		}

		rendered, err := report.RenderTerminal(md, width)
		if err == nil {
			md = rendered
		}
	}

	_, err := fmt.Fprint(w, md)

	return err
}
