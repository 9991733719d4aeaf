package main

import (
	"github.com/spf13/cobra"

	"github.com/amishk599/jobharvest/internal/output"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage <file.csv>",
	Short: "Print field coverage of an export",
	Long:  "Reads a CSV export and prints how many records fill each column, per site and overall.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoverage,
}

func init() {
	rootCmd.AddCommand(coverageCmd)
}

func runCoverage(cmd *cobra.Command, args []string) error {
	schema, records, err := output.ReadFile(args[0])
	if err != nil {
		return err
	}
	output.Measure(schema, records).Print(cmd.OutOrStdout())
	return nil
}
