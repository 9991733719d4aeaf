package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobharvest/internal/model"
	"github.com/amishk599/jobharvest/internal/output"
)

// writeTimeout bounds the wait for the export lock.
const writeTimeout = 30 * time.Second

// Cleaner prunes state older than a retention window.
type Cleaner interface {
	Cleanup(olderThan time.Duration) error
}

// Config holds the run-level settings.
type Config struct {
	Interval    time.Duration
	Concurrency int
	OutputPath  string // may contain output.TimestampToken
	Retention   time.Duration
}

// Report is the outcome of one run across all sites.
type Report struct {
	Run      model.RunRecord
	Results  []model.SiteResult // configured site order
	Coverage output.Coverage
}

// Scheduler owns the main loop: ticks on an interval and runs every site,
// a bounded number at a time, into one CSV export per run.
type Scheduler struct {
	sources  []model.RecordSource
	cfg      Config
	recorder model.RunRecorder
	cleaner  Cleaner
	logger   *slog.Logger
	now      func() time.Time
}

// NewScheduler creates a scheduler over sources in their configured order.
// recorder and cleaner may be nil.
func NewScheduler(sources []model.RecordSource, cfg Config, recorder model.RunRecorder, cleaner Cleaner, logger *slog.Logger) *Scheduler {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Scheduler{
		sources:  sources,
		cfg:      cfg,
		recorder: recorder,
		cleaner:  cleaner,
		logger:   logger,
		now:      time.Now,
	}
}

// Run starts the scheduling loop. It runs one immediate cycle, then waits
// the configured interval between cycles. It returns nil when ctx is
// cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		"interval", s.cfg.Interval.String(),
		"sites", len(s.sources),
		"concurrency", s.cfg.Concurrency,
	)

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.cfg.Interval):
		}
	}
}

// RunOnce runs every site, merges their records in configured order and
// writes the export. A failing site never stops the others; the returned
// error is about the export itself.
func (s *Scheduler) RunOnce(ctx context.Context) (Report, error) {
	started := s.now()
	run := model.RunRecord{
		ID:        uuid.NewString(),
		StartedAt: started,
		Sites:     len(s.sources),
	}
	logger := s.logger.With("run_id", run.ID)
	logger.Info("run started", "sites", len(s.sources))

	// Each site writes only its own slot; merging happens after Wait.
	results := make([]model.SiteResult, len(s.sources))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, src := range s.sources {
		g.Go(func() error {
			res, err := src.Collect(ctx)
			if err != nil {
				logger.Error("site pipeline error", "site", res.Site, "error", err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var merged []model.Record
	for _, res := range results {
		if res.Err != nil || res.Reason.Partial() {
			run.Failed++
			logger.Warn("site incomplete",
				"site", res.Site,
				"reason", string(res.Reason),
				"records", len(res.Records),
				"error", res.Err,
			)
		}
		merged = append(merged, res.Records...)
	}
	run.Records = len(merged)

	report := Report{Results: results, Coverage: output.Measure(model.OutputSchema, merged)}

	var writeErr error
	if s.cfg.OutputPath != "" {
		run.OutputPath = output.ResolvePath(s.cfg.OutputPath, started)
		// Partial results are still written when shutdown cancelled the run.
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		writeErr = output.WriteFile(wctx, run.OutputPath, model.OutputSchema, merged)
		cancel()
		if writeErr != nil {
			logger.Error("writing export failed", "path", run.OutputPath, "error", writeErr)
			run.OutputPath = ""
		}
	}
	run.FinishedAt = s.now()
	report.Run = run

	if s.recorder != nil {
		if err := s.recorder.RecordRun(run); err != nil {
			logger.Error("recording run failed", "error", err)
		}
	}
	if s.cleaner != nil && s.cfg.Retention > 0 {
		if err := s.cleaner.Cleanup(s.cfg.Retention); err != nil {
			logger.Warn("cleanup failed", "error", err)
		}
	}

	logger.Info("run complete",
		"records", run.Records,
		"failed_sites", run.Failed,
		"empty_fields", len(report.Coverage.Empty()),
		"output", run.OutputPath,
		"duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String(),
	)
	return report, writeErr
}
