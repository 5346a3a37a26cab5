package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askiada/tractfilter/internal/report"
	"github.com/askiada/tractfilter/internal/tck"
)

var countCmd = &cobra.Command{
	Use:   "count <file.tck>...",
	Short: "Count the fibers of track files",
	Long:  `Reads every streamline of the given track files and prints their count and length statistics.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fast, err := cmd.Flags().GetBool("fast")
		if err != nil {
			return err
		}

		table := countTable
		if fast {
			table = fastCountTable
		}

		md, err := table(args)
		if err != nil {
			return err
		}

		return printMarkdown(cmd.OutOrStdout(), md)
	},
}

func init() {
	rootCmd.AddCommand(countCmd)

	countCmd.Flags().Bool("fast", false, "print fiber counts only, without length statistics")
}

func fastCountTable(paths []string) (string, error) {
	var sb strings.Builder

	sb.WriteString("| TCK File | Fiber Count |\n")
	sb.WriteString("|---|---:|\n")

	for _, path := range paths {
		count, err := tck.Count(path)
		if err != nil {
			return "", err
		}

		fmt.Fprintf(&sb, "| %s | %s |\n", filepath.Base(path), report.FormatCount(&count))
	}

	return sb.String(), nil
}

func countTable(paths []string) (string, error) {
	var sb strings.Builder

	sb.WriteString("| TCK File | Fiber Count | Header Count | Mean Length (mm) | Min | Max |\n")
	sb.WriteString("|---|---:|---:|---:|---:|---:|\n")

	for _, path := range paths {
		stats, err := tck.ComputeStats(path)
		if err != nil {
			return "", err
		}

		header := report.NotAvailable
		if stats.HeaderCount >= 0 {
			header = report.FormatCount(&stats.HeaderCount)
		}

		fmt.Fprintf(&sb, "| %s | %s | %s | %.1f ± %.1f | %.1f | %.1f |\n",
			filepath.Base(path), report.FormatCount(&stats.Count), header,
			stats.MeanLength, stats.StdLength, stats.MinLength, stats.MaxLength)
	}

	return sb.String(), nil
}
