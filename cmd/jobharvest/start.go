package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobharvest/internal/config"
	"github.com/amishk599/jobharvest/internal/scheduler"
	"github.com/amishk599/jobharvest/internal/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the harvesting daemon",
	Long:  "Start the scheduler daemon; runs every enabled site each interval and blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Harvest every site once and exit",
	Long:  "Runs every enabled site once, writes the CSV export, prints field coverage and exits.",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(runCmd)
}

// setupScheduler wires the full pipeline. The returned cleanup closes the
// browser and the store.
func setupScheduler(cfg *config.Config) (*scheduler.Scheduler, func(), error) {
	logger := setupLogger(debug)

	logger.Info("config loaded",
		"interval", cfg.Interval.String(),
		"sites", len(cfg.Sites),
		"engine", cfg.Browser.Engine,
		"concurrency", cfg.Concurrency,
		"title_keywords", len(cfg.Filters.TitleKeywords),
		"locations", len(cfg.Filters.Locations),
	)

	sites, err := enabledSites(cfg)
	if err != nil {
		return nil, nil, err
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}

	n, err := setupNotifier(cfg, newHTTPClient(), logger)
	if err != nil {
		sqlStore.Close()
		return nil, nil, err
	}

	opts, err := runnerOptions(cfg, logger)
	if err != nil {
		sqlStore.Close()
		return nil, nil, err
	}

	br, err := setupBrowser(cfg)
	if err != nil {
		sqlStore.Close()
		return nil, nil, err
	}

	sources := buildRunners(sites, br, setupFilter(cfg), sqlStore, n, opts, logger)
	sched := scheduler.NewScheduler(sources, scheduler.Config{
		Interval:    cfg.Interval,
		Concurrency: cfg.Concurrency,
		OutputPath:  cfg.Output.Path,
		Retention:   cfg.Store.Retention,
	}, sqlStore, sqlStore, logger)

	cleanup := func() {
		if err := br.Close(); err != nil {
			logger.Warn("closing browser failed", "error", err)
		}
		sqlStore.Close()
	}
	return sched, cleanup, nil
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	sched, cleanup, err := setupScheduler(cfg)
	if err != nil {
		logger.Error("setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	sched, cleanup, err := setupScheduler(cfg)
	if err != nil {
		logger.Error("setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := sched.RunOnce(ctx)
	report.Coverage.Print(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if report.Run.OutputPath != "" {
		cmd.Printf("\nWrote %d records to %s\n", report.Run.Records, report.Run.OutputPath)
	}
	return nil
}
