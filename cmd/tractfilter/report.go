package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Render the report of a recorded run",
	Long:  `Renders the PDF report of a run recorded in the ledger without running any tool. ROI statistics are not part of the ledger.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ledger, err := openLedger(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer ledger.Close()

		recorded, err := ledger.LoadRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		// the pipeline is not drawn again
		cfg.Report.Graph = ""

		outputs, err := writeReports(recorded.Dir, cfg.Report, reportData(recorded))
		if err != nil {
			return err
		}

		for _, out := range outputs {
			fmt.Fprintln(cmd.OutOrStdout(), out.Path)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	flags := reportCmd.Flags()
	flags.String("out", "", "PDF report path, relative to the run directory")
	flags.String("csv", "", "CSV table path, relative to the run directory")
	flags.String("html", "", "HTML chart path, relative to the run directory")
	flags.String("manifest", "", "YAML manifest path, relative to the run directory")
}
