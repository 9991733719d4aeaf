package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobharvest/internal/model"
	"github.com/amishk599/jobharvest/internal/notifier"
	"github.com/amishk599/jobharvest/internal/output"
	"github.com/amishk599/jobharvest/internal/runner"
	"github.com/amishk599/jobharvest/internal/site"
	"github.com/amishk599/jobharvest/internal/store"
)

var checkCards int

var checkCmd = &cobra.Command{
	Use:   "check [site]",
	Short: "Harvest a few postings, print them, exit",
	Long:  "One-shot smoke test: runs each enabled site (or only the named one) with small limits and logs the records. Nothing is stored or exported.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkCards, "cards", 5, "max postings per site")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("check mode: nothing will be stored or exported")

	sites, err := enabledSites(cfg)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		s, err := findSite(sites, args[0])
		if err != nil {
			return err
		}
		sites = []site.Site{s}
	}
	for i := range sites {
		sites[i] = limitSite(sites[i], checkCards)
	}

	opts, err := runnerOptions(cfg, logger)
	if err != nil {
		return err
	}
	br, err := setupBrowser(cfg)
	if err != nil {
		return err
	}
	defer br.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The log notifier prints every record since a nop store has seen nothing.
	n := notifier.NewLogNotifier(logger)
	var all []model.Record
	for _, s := range sites {
		r := runner.NewSiteRunner(s, br, nil, store.NewNopStore(), n, opts, logger)
		res, err := r.Run(ctx)
		if err != nil {
			logger.Error("site failed", "site", s.Name, "error", err)
		}
		if res.Err != nil {
			logger.Warn("site incomplete", "site", s.Name, "reason", string(res.Reason), "error", res.Err)
		}
		all = append(all, res.Records...)
		if ctx.Err() != nil {
			break
		}
	}

	fmt.Fprintln(cmd.OutOrStdout())
	output.Measure(model.OutputSchema, all).Print(cmd.OutOrStdout())
	logger.Info("check complete", "records", len(all))
	return nil
}
