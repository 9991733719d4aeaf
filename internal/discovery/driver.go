// Package discovery drives a live page to enumerate job identifiers or
// listing cards, and revisits detail pages for enrichment.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobharvest/internal/browser"
	"github.com/amishk599/jobharvest/internal/extract"
	"github.com/amishk599/jobharvest/internal/model"
)

// DefaultMaxSteps bounds runs configured without a step limit.
const DefaultMaxSteps = 100

// Result is the outcome of one discovery run. Err is set only when the
// initial navigation failed; every other stop keeps what was collected.
type Result struct {
	IDs     []string
	Records []model.Record
	Steps   int
	Reason  model.StopReason
	Err     error
	Trace   []Transition
}

// Driver owns one page for the duration of a site run. It is not safe for
// concurrent use.
type Driver struct {
	site   string
	page   browser.Page
	logger *slog.Logger
	settle *Settler
	debug  *browser.ScreenshotDebugger
	nav    browser.NavigateOptions
}

type Option func(*Driver)

func WithSettler(s *Settler) Option {
	return func(d *Driver) { d.settle = s }
}

// WithDebugger captures the page when a step fails or a page has no cards.
func WithDebugger(dbg *browser.ScreenshotDebugger) Option {
	return func(d *Driver) { d.debug = dbg }
}

func WithNavigateOptions(o browser.NavigateOptions) Option {
	return func(d *Driver) { d.nav = o }
}

func New(site string, page browser.Page, logger *slog.Logger, opts ...Option) *Driver {
	d := &Driver{
		site:   site,
		page:   page,
		logger: logger.With("site", site),
		settle: NewSettler(0),
		nav:    browser.NavigateOptions{Wait: browser.WaitNetworkIdle},
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// load navigates to url, waits for rendering and captures the result.
func (d *Driver) load(ctx context.Context, url string, delay time.Duration) (*extract.Snapshot, error) {
	if err := d.page.Navigate(ctx, url, d.nav); err != nil {
		return nil, err
	}
	if err := d.settle.Wait(ctx, delay); err != nil {
		return nil, err
	}
	return d.capture(ctx)
}

func (d *Driver) capture(ctx context.Context) (*extract.Snapshot, error) {
	markup, err := d.page.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("capturing markup: %w", err)
	}
	return extract.Parse(markup, d.page.URL())
}

func (d *Driver) fire(m *Machine, ev Event) {
	if err := m.Fire(ev); err != nil {
		d.logger.Error("discovery transition rejected", "state", m.State(), "event", ev, "error", err)
		// Force termination so the loop cannot spin.
		if m.State() != StateExhausted && m.State() != StateAborted {
			m.state = StateExhausted
			m.reason = model.StopStepFailed
		}
	}
}

func (d *Driver) shot(ctx context.Context, name, reason string) {
	d.debug.Capture(ctx, d.page, fmt.Sprintf("%s_%s", d.site, name), reason)
}

func (d *Driver) stepFailed(ctx context.Context, m *Machine, step string, err error) {
	d.logger.Warn("discovery step failed, keeping partial results",
		"step", m.Steps()+1,
		"state", m.State(),
		"action", step,
		"error", err,
	)
	d.shot(ctx, fmt.Sprintf("step%d", m.Steps()+1), step)
	d.fire(m, EventStepFailed)
}

func (d *Driver) finish(m *Machine, r Result) Result {
	r.Steps = m.Steps()
	r.Reason = m.Reason()
	r.Trace = m.Trace()
	d.logger.Info("discovery finished",
		"reason", r.Reason,
		"steps", r.Steps,
		"ids", len(r.IDs),
		"records", len(r.Records),
	)
	return r
}

func maxSteps(n int) int {
	if n <= 0 {
		return DefaultMaxSteps
	}
	return n
}
