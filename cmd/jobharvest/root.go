package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobharvest/internal/browser"
	"github.com/amishk599/jobharvest/internal/config"
	"github.com/amishk599/jobharvest/internal/discovery"
	"github.com/amishk599/jobharvest/internal/filter"
	"github.com/amishk599/jobharvest/internal/model"
	"github.com/amishk599/jobharvest/internal/notifier"
	"github.com/amishk599/jobharvest/internal/ratelimit"
	"github.com/amishk599/jobharvest/internal/runner"
	"github.com/amishk599/jobharvest/internal/site"
)

var (
	cfgPath string
	debug   bool
	pretty  bool
)

var rootCmd = &cobra.Command{
	Use:   "jobharvest",
	Short: "Job board harvester",
	Long:  "jobharvest walks job board listings, extracts every posting into a CSV export and alerts on new ones.",
	// Default to `start` so that `jobharvest` with no args runs the daemon.
	RunE:         runStart,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: "+config.EnvPath+" env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "colored human-readable logs")
}

func loadConfig(path string) (*config.Config, error) {
	return config.Load(config.ResolvePath(path))
}

func setupLogger(dbg bool) *slog.Logger {
	return newLogger(os.Stdout, dbg, pretty)
}

func newLogger(w io.Writer, dbg, colored bool) *slog.Logger {
	if colored {
		level := charmlog.InfoLevel
		if dbg {
			level = charmlog.DebugLevel
		}
		return slog.New(charmlog.NewWithOptions(w, charmlog.Options{
			Level:           level,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		}))
	}
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// silentLogger is used while a TUI owns the terminal; any log output before
// the alt-screen starts corrupts the display.
func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.Notifier, error) {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger), nil
	case "telegram":
		logger.Info("using telegram notifier", "chat_id", cfg.Notification.TelegramChatID)
		n, err := notifier.NewTelegramNotifier(cfg.Notification.TelegramToken, cfg.Notification.TelegramChatID, logger)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return notifier.NewLogNotifier(logger), nil
	}
}

func setupFilter(cfg *config.Config) *filter.TitleAndLocationFilter {
	return filter.NewTitleAndLocationFilter(filter.Keywords{
		Titles:           cfg.Filters.TitleKeywords,
		ExcludeTitles:    cfg.Filters.TitleExcludeKeywords,
		Locations:        cfg.Filters.Locations,
		ExcludeLocations: cfg.Filters.ExcludeLocations,
	})
}

func setupBrowser(cfg *config.Config) (browser.Browser, error) {
	return browser.New(cfg.Browser.Engine, browser.Options{
		Headless:   cfg.Browser.Headless,
		Locale:     cfg.Browser.Locale,
		UserAgent:  cfg.Browser.UserAgent,
		Width:      cfg.Browser.Width,
		Height:     cfg.Browser.Height,
		NavTimeout: cfg.Browser.NavTimeout,
	})
}

// runnerOptions builds the collaborators shared by every site runner. The
// host limiter is shared so sites on one host never outpace it together.
func runnerOptions(cfg *config.Config, logger *slog.Logger) (runner.Options, error) {
	opts := runner.Options{
		Limiter:    ratelimit.NewHostLimiter(cfg.RateLimit.MinDelayFor, cfg.RateLimit.Burst),
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		Settler:    discovery.NewSettler(cfg.Browser.SettleJitter),
		Navigate: browser.NavigateOptions{
			Wait:    browser.WaitDOMContentLoaded,
			Timeout: cfg.Browser.NavTimeout,
		},
	}
	if cfg.Browser.ScreenshotDir != "" {
		dbg, err := browser.NewScreenshotDebugger(cfg.Browser.ScreenshotDir, logger)
		if err != nil {
			return runner.Options{}, err
		}
		opts.Debugger = dbg
	}
	return opts, nil
}

// enabledSites resolves the enabled sites in configured order.
func enabledSites(cfg *config.Config) ([]site.Site, error) {
	var sites []site.Site
	for _, sc := range cfg.Sites {
		if !sc.Enabled {
			continue
		}
		s, err := site.Resolve(sc)
		if err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, nil
}

// limitSite caps a site for quick one-off runs.
func limitSite(s site.Site, cards int) site.Site {
	s.MaxCards = cards
	s.MaxPages = 1
	s.MaxSteps = 1
	return s
}

func findSite(sites []site.Site, name string) (site.Site, error) {
	for _, s := range sites {
		if s.Name == name {
			return s, nil
		}
	}
	return site.Site{}, fmt.Errorf("no enabled site named %q", name)
}

func buildRunners(
	sites []site.Site,
	br browser.Browser,
	recordFilter model.RecordFilter,
	store model.IDStore,
	n model.Notifier,
	opts runner.Options,
	logger *slog.Logger,
) []model.RecordSource {
	sources := make([]model.RecordSource, 0, len(sites))
	for _, s := range sites {
		sources = append(sources, runner.NewSiteRunner(s, br, recordFilter, store, n, opts, logger))
		logger.Info("registered site",
			"name", s.Name,
			"strategy", string(s.Strategy),
			"host", s.Host(),
			"enrich", s.Enrich,
		)
	}
	return sources
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
