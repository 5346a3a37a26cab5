package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/askiada/tractfilter/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "tractfilter",
	Short: "Filter tractograms with ROI masks and report fiber counts",
	Long: `tractfilter runs tckedit on every configured tractogram of a directory,
keeping the streamlines that cross its include masks and, separately, those
that do not. It counts the fibers of the original and filtered tractograms,
extracts streamline endpoints and writes a PDF report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "YAML configuration file")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("db", "", "run ledger database, empty to disable")
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level":       "log.level",
	"log-format":      "log.format",
	"db":              "store.path",
	"jobs":            "pipeline.jobs",
	"fail-fast":       "pipeline.keep_going",
	"dry-run":         "pipeline.dry_run",
	"skip-empty-rois": "pipeline.skip_empty_rois",
	"label":           "pipeline.label",
	"title":           "report.title",
	"out":             "report.pdf",
	"csv":             "report.csv",
	"html":            "report.html",
	"manifest":        "report.manifest",
	"graph":           "report.graph",
	"metrics-file":    "metrics.textfile",
	"threads":         "tools.threads",
}

// negatedFlags are boolean flags setting the opposite of their key.
var negatedFlags = map[string]bool{
	"fail-fast": true,
}

// overrides returns the configuration keys of the flags set on cmd.
func overrides(cmd *cobra.Command) (map[string]any, error) {
	res := map[string]any{}
	flags := cmd.Flags()

	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}

		var (
			value any
			err   error
		)

		switch flag.Value.Type() {
		case "int":
			value, err = flags.GetInt(name)
		case "bool":
			var set bool
			set, err = flags.GetBool(name)
			value = set != negatedFlags[name]
		default:
			value, err = flags.GetString(name)
		}

		if err != nil {
			return nil, err
		}

		res[key] = value
	}

	return res, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	values, err := overrides(cmd)
	if err != nil {
		return nil, err
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	return config.Load(path, values)
}
