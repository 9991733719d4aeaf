package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobharvest/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent harvest runs",
	Long:  "Prints the most recent runs recorded in the store, newest first.",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "number of runs to show")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer sqlStore.Close()

	runs, err := sqlStore.RecentRuns(runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Printf("%-8s %-19s %-9s %-7s %-8s %s\n", "Run", "Started", "Duration", "Failed", "Records", "Output")
	fmt.Println(strings.Repeat("─", 80))
	for _, r := range runs {
		fmt.Printf("%-8s %-19s %-9s %-7s %-8d %s\n",
			r.ID[:min(8, len(r.ID))],
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String(),
			fmt.Sprintf("%d/%d", r.Failed, r.Sites),
			r.Records,
			orDash(r.OutputPath),
		)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
