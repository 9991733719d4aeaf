// Package runner owns the pipeline of one site:
// open page → discover → enrich → filter → dedup → notify → mark seen.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobharvest/internal/browser"
	"github.com/amishk599/jobharvest/internal/discovery"
	"github.com/amishk599/jobharvest/internal/extract"
	"github.com/amishk599/jobharvest/internal/model"
	"github.com/amishk599/jobharvest/internal/ratelimit"
	"github.com/amishk599/jobharvest/internal/retry"
	"github.com/amishk599/jobharvest/internal/site"
)

// Ensure SiteRunner implements model.RecordSource.
var _ model.RecordSource = (*SiteRunner)(nil)

// Options carries the shared collaborators every site run is wired with.
// Zero values disable the matching decorator.
type Options struct {
	Limiter    *ratelimit.HostLimiter
	MaxRetries int
	BaseDelay  time.Duration
	Settler    *discovery.Settler
	Debugger   *browser.ScreenshotDebugger
	Navigate   browser.NavigateOptions
	// Now is the extractor clock; nil means time.Now.
	Now func() time.Time
}

// SiteRunner runs one site end to end. Each Run opens its own page, so
// runners of different sites can run concurrently against one Browser.
type SiteRunner struct {
	Site     site.Site
	browser  browser.Browser
	filter   model.RecordFilter
	store    model.IDStore
	notifier model.Notifier
	opts     Options
	logger   *slog.Logger
}

// NewSiteRunner creates a runner wired with all its dependencies. A nil
// filter lets every record through to notification.
func NewSiteRunner(
	s site.Site,
	br browser.Browser,
	filter model.RecordFilter,
	store model.IDStore,
	notifier model.Notifier,
	opts Options,
	logger *slog.Logger,
) *SiteRunner {
	return &SiteRunner{
		Site:     s,
		browser:  br,
		filter:   filter,
		store:    store,
		notifier: notifier,
		opts:     opts,
		logger:   logger.With("site", s.Name),
	}
}

// Collect runs the site once.
func (r *SiteRunner) Collect(ctx context.Context) (model.SiteResult, error) {
	return r.Run(ctx)
}

// Run discovers the site's records and notifies the ones not seen before.
// Discovery failures are reported in SiteResult.Err and never returned; the
// returned error is about the store or the notifier only.
func (r *SiteRunner) Run(ctx context.Context) (model.SiteResult, error) {
	res := model.SiteResult{Site: r.Site.Name, Started: time.Now()}

	page, err := r.browser.NewPage(ctx)
	if err != nil {
		res.Reason = model.StopNavigationFailed
		res.Err = fmt.Errorf("opening page for %s: %w", r.Site.Name, err)
		res.Finished = time.Now()
		r.logger.Error("site run aborted", "error", res.Err)
		return res, nil
	}
	defer page.Close()

	out := r.discover(ctx, r.decorate(page))
	res.Records = r.normalize(out.Records)
	res.IDs = len(out.IDs)
	res.Steps = out.Steps
	res.Reason = out.Reason
	res.Err = out.Err

	var dispatchErr error
	if len(res.Records) > 0 {
		res.New, dispatchErr = r.dispatch(res.Records)
	}
	res.Finished = time.Now()

	r.logger.Info("site run complete",
		"strategy", string(r.Site.Strategy),
		"ids", res.IDs,
		"records", len(res.Records),
		"new", res.New,
		"steps", res.Steps,
		"reason", string(res.Reason),
		"duration", res.Finished.Sub(res.Started).Round(time.Millisecond).String(),
	)
	if dispatchErr != nil {
		return res, fmt.Errorf("running %s: %w", r.Site.Name, dispatchErr)
	}
	return res, nil
}

// decorate wraps the page with rate limiting (innermost) and retries.
func (r *SiteRunner) decorate(page browser.Page) browser.Page {
	if r.opts.Limiter != nil {
		page = ratelimit.NewPage(page, r.opts.Limiter)
	}
	if r.opts.MaxRetries > 0 {
		page = retry.NewPage(page, r.opts.MaxRetries, r.opts.BaseDelay, r.logger)
	}
	return page
}

func (r *SiteRunner) extractOpts() []extract.Option {
	if r.opts.Now == nil {
		return nil
	}
	return []extract.Option{extract.WithClock(r.opts.Now)}
}

func (r *SiteRunner) discover(ctx context.Context, page browser.Page) discovery.Result {
	dopts := []discovery.Option{discovery.WithDebugger(r.opts.Debugger)}
	if r.opts.Settler != nil {
		dopts = append(dopts, discovery.WithSettler(r.opts.Settler))
	}
	if r.opts.Navigate.Wait != "" || r.opts.Navigate.Timeout > 0 {
		dopts = append(dopts, discovery.WithNavigateOptions(r.opts.Navigate))
	}
	d := discovery.New(r.Site.Name, page, r.logger, dopts...)

	s := r.Site
	listing := s.ListingExtractor(r.logger, r.extractOpts()...)

	var res discovery.Result
	switch s.Strategy {
	case site.StrategyIDs:
		res = d.CollectIDs(ctx, s.IDConfig())
		if res.Err != nil {
			return res
		}
		if !s.Enrich {
			res.Records = idRecords(res.IDs, s.DetailURL)
			return res
		}
		records, reason := d.EnrichIDs(ctx, res.IDs, s.DetailURL, s.EnrichConfig(s.DetailExtractor(r.logger, r.extractOpts()...)))
		res.Records = records
		if reason != model.StopNone {
			res.Reason = reason
		}
		return res
	case site.StrategyModal:
		res = d.CollectModal(ctx, s.ModalConfig(listing))
	default:
		res = d.CollectCards(ctx, s.CardConfig(listing))
	}

	if res.Err == nil && s.Enrich && len(res.Records) > 0 {
		records, reason := d.EnrichRecords(ctx, res.Records, s.EnrichConfig(s.DetailExtractor(r.logger, r.extractOpts()...)))
		res.Records = records
		if reason != model.StopNone {
			res.Reason = reason
		}
	}
	return res
}

// idRecords turns bare identifiers into records carrying the detail URL.
func idRecords(ids []string, template string) []model.Record {
	out := make([]model.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.NewRecord(site.ListingSchema, map[string]string{
			model.FieldJobID: id,
			model.FieldURL:   discovery.DetailURL(template, id),
		}))
	}
	return out
}

// normalize widens every record to the export schema and stamps the site
// name where the profile left source_site empty.
func (r *SiteRunner) normalize(records []model.Record) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, rec := range records {
		b := model.NewRecordBuilder(model.OutputSchema)
		for k, v := range rec.Map() {
			b.Set(k, v)
		}
		b.SetIfEmpty(model.FieldSourceSite, r.Site.Name)
		out = append(out, b.Build())
	}
	return out
}

// dispatch notifies matching records not seen before and marks every keyed
// record seen. The first run of a site seeds the store without notifying.
func (r *SiteRunner) dispatch(records []model.Record) (int, error) {
	name := r.Site.Name
	seeding, err := r.store.IsEmpty(name)
	if err != nil {
		return 0, fmt.Errorf("checking store: %w", err)
	}

	var fresh []model.Record
	var keys []string
	unseen := 0
	for _, rec := range records {
		key := model.RecordKey(rec)
		if key == "" {
			continue
		}
		keys = append(keys, key)
		seen, err := r.store.HasSeen(name, key)
		if err != nil {
			return 0, fmt.Errorf("checking seen status: %w", err)
		}
		if seen {
			continue
		}
		unseen++
		if r.filter == nil || r.filter.Match(rec) {
			fresh = append(fresh, rec)
		}
	}

	notified := 0
	switch {
	case seeding:
		r.logger.Info("first run, seeding store without notifying", "records", len(keys))
	case len(fresh) > 0:
		if err := r.notifier.Notify(name, fresh); err != nil {
			return unseen, fmt.Errorf("notifying: %w", err)
		}
		notified = len(fresh)
	}

	for _, key := range keys {
		if err := r.store.MarkSeen(name, key); err != nil {
			return unseen, fmt.Errorf("marking seen: %w", err)
		}
	}
	r.logger.Debug("dispatched", "unseen", unseen, "notified", notified)
	return unseen, nil
}
