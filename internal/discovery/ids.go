package discovery

import (
	"context"
	"time"

	"github.com/amishk599/jobharvest/internal/extract"
	"github.com/amishk599/jobharvest/internal/model"
)

// IDConfig configures identifier collection.
type IDConfig struct {
	StartURL  string
	Advance   AdvanceMode
	StepDelay time.Duration
	MaxSteps  int
	// Selector and Attr locate identifiers; they default to the
	// data-joboffer buttons of elempleo listings.
	Selector string
	Attr     string
	ScrollBy int
}

func (c IDConfig) withDefaults() IDConfig {
	if c.Advance == "" {
		c.Advance = AdvancePaginate
	}
	if c.Selector == "" {
		c.Selector = "button[data-joboffer]"
	}
	if c.Attr == "" {
		c.Attr = "data-joboffer"
	}
	if c.ScrollBy <= 0 {
		c.ScrollBy = DefaultScroll
	}
	c.MaxSteps = maxSteps(c.MaxSteps)
	return c
}

// CollectIDs loads StartURL and keeps advancing, by next control or scroll,
// while each snapshot adds identifiers. It stops when there is no next
// control, when a snapshot adds nothing, after MaxSteps advances, or when a
// step fails.
func (d *Driver) CollectIDs(ctx context.Context, cfg IDConfig) Result {
	cfg = cfg.withDefaults()
	m := NewMachine()
	ids := model.NewIdentifierSet()

	snap, err := d.load(ctx, cfg.StartURL, cfg.StepDelay)
	if err != nil {
		d.logger.Error("listing page failed to load", "url", cfg.StartURL, "error", err)
		d.fire(m, EventLoadFailed)
		return d.finish(m, Result{Err: err})
	}
	d.fire(m, EventLoaded)

	for !m.Done() {
		switch m.State() {
		case StateExtracting:
			found := snap.Attrs(cfg.Selector, cfg.Attr)
			added := ids.AddAll(found)
			d.logger.Debug("collected identifiers",
				"step", m.Steps(),
				"found", len(found),
				"new", added,
				"total", ids.Len(),
			)
			switch {
			case len(found) == 0:
				d.shot(ctx, "no-ids", "no identifiers on page")
				d.fire(m, EventEmpty)
			case added == 0:
				d.fire(m, EventStalled)
			default:
				d.fire(m, EventGrew)
			}

		case StateAdvancing:
			if m.Steps() >= cfg.MaxSteps {
				d.logger.Warn("step limit reached", "max_steps", cfg.MaxSteps)
				d.fire(m, EventStepLimit)
				continue
			}
			next, ev, err := d.advanceIDs(ctx, snap, cfg)
			if err != nil {
				d.stepFailed(ctx, m, string(cfg.Advance), err)
				continue
			}
			if ev == EventAdvanced {
				snap = next
			}
			d.fire(m, ev)
		}
	}
	return d.finish(m, Result{IDs: ids.Freeze()})
}

func (d *Driver) advanceIDs(ctx context.Context, snap *extract.Snapshot, cfg IDConfig) (*extract.Snapshot, Event, error) {
	switch cfg.Advance {
	case AdvanceScroll:
		if err := d.page.Scroll(ctx, cfg.ScrollBy); err != nil {
			return nil, EventStepFailed, err
		}
	default:
		ok, err := d.clickNext(ctx, snap)
		if !ok {
			return nil, EventNoControl, nil
		}
		if err != nil {
			return nil, EventStepFailed, err
		}
	}
	if err := d.settle.Wait(ctx, cfg.StepDelay); err != nil {
		return nil, EventStepFailed, err
	}
	next, err := d.capture(ctx)
	if err != nil {
		return nil, EventStepFailed, err
	}
	return next, EventAdvanced, nil
}
