package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/tractfilter/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the runs recorded in the ledger",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		ledger, err := openLedger(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer ledger.Close()

		runs, err := ledger.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}

		return printMarkdown(cmd.OutOrStdout(), historyTable(runs))
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 20, "number of runs listed, 0 for all")
}

func openLedger(path string) (*store.Store, error) {
	ledger, err := store.Open(path)
	if errors.Is(err, store.ErrPathRequired) {
		return nil, errors.Wrap(err, "set --db or store.path")
	}

	return ledger, err
}

func historyTable(runs []store.Run) string {
	var sb strings.Builder

	sb.WriteString("| Run | Started | Status | Directory |\n")
	sb.WriteString("|---|---|---|---|\n")

	for _, run := range runs {
		status := run.Status
		if run.DryRun {
			status += " (dry run)"
		}

		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
			run.ID, run.Started.Local().Format("2006-01-02 15:04:05"), status, run.Dir)
	}

	return sb.String()
}
