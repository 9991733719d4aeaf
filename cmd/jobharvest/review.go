package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobharvest/internal/config"
	"github.com/amishk599/jobharvest/internal/model"
	"github.com/amishk599/jobharvest/internal/output"
	"github.com/amishk599/jobharvest/internal/review"
	"github.com/amishk599/jobharvest/internal/runner"
	"github.com/amishk599/jobharvest/internal/store"
)

var (
	reviewFile  string
	reviewCards int
)

// reviewTimeout bounds one live discovery started from the picker.
const reviewTimeout = 5 * time.Minute

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse records interactively (TUI)",
	Long:  "Shows the site picker, runs a short live discovery, then launches the split-pane review. With --file, reviews an existing CSV export instead.",
	RunE:  runReviewCmd,
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewFile, "file", "f", "", "review a CSV export instead of running discovery")
	reviewCmd.Flags().IntVar(&reviewCards, "cards", 20, "max postings per live discovery")
	rootCmd.AddCommand(reviewCmd)
}

func runReviewCmd(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	recordFilter := setupFilter(cfg)

	if reviewFile != "" {
		_, records, err := output.ReadFile(reviewFile)
		if err != nil {
			return err
		}
		_, err = review.RunReviewTUI(filepath.Base(reviewFile), records, recordFilter)
		return err
	}
	return runReviewLive(cfg, recordFilter)
}

func runReviewLive(cfg *config.Config, recordFilter model.RecordFilter) error {
	sites, err := enabledSites(cfg)
	if err != nil {
		return err
	}
	if len(sites) == 0 {
		fmt.Println("No enabled sites in config.")
		return nil
	}
	options := make([]review.SiteOption, len(sites))
	for i, s := range sites {
		options[i] = review.SiteOption{Name: s.Name, Strategy: string(s.Strategy)}
	}

	logger := silentLogger()
	opts, err := runnerOptions(cfg, logger)
	if err != nil {
		return err
	}
	br, err := setupBrowser(cfg)
	if err != nil {
		return err
	}
	defer br.Close()

	for {
		choice, err := review.RunSitePicker(options)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return nil
		}
		if choice < 0 {
			return nil
		}
		s := limitSite(sites[choice], reviewCards)

		// Review never notifies or marks anything seen.
		r := runner.NewSiteRunner(s, br, nil, store.NewNopStore(), nopNotifier{}, opts, logger)
		res, err := review.RunLoader(s.Name, reviewTimeout, func(ctx context.Context) (model.SiteResult, error) {
			return r.Run(ctx)
		})
		if err != nil {
			fmt.Printf("Error discovering %s: %v\n", s.Name, err)
			continue
		}
		if res.Err != nil {
			fmt.Printf("%s stopped early (%s): %v\n", s.Name, res.Reason, res.Err)
		}

		wantQuit, err := review.RunReviewTUI(s.Name, res.Records, recordFilter)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, []model.Record) error { return nil }
