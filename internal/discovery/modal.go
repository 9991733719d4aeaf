package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amishk599/jobharvest/internal/browser"
	"github.com/amishk599/jobharvest/internal/extract"
	"github.com/amishk599/jobharvest/internal/model"
)

// Locator finds live elements: every match of Selector, narrowed to those
// whose text contains Text (folded) when Text is set.
type Locator struct {
	Selector string
	Text     string
}

func (l Locator) String() string {
	if l.Text == "" {
		return l.Selector
	}
	return fmt.Sprintf("%s:text(%q)", l.Selector, l.Text)
}

// ModalConfig configures the quick-view flow: open each card's modal, extract
// the modal, close it.
type ModalConfig struct {
	StartURL   string
	Triggers   []Locator
	Containers []string // cascade for the modal root; the whole page when none match
	Closers    []Locator
	Extractor  *extract.Extractor
	MaxCards   int
	StepDelay  time.Duration
}

const maxModalFailures = 3

// locate returns the elements of the first locator with any match.
func (d *Driver) locate(ctx context.Context, locs []Locator) ([]browser.Element, int, error) {
	for i, l := range locs {
		els, err := d.page.Find(ctx, l.Selector)
		if err != nil {
			if ctx.Err() != nil {
				return nil, -1, ctx.Err()
			}
			d.logger.Debug("locator failed", "locator", l, "error", err)
			continue
		}
		if l.Text != "" {
			want := extract.Fold(l.Text)
			kept := els[:0]
			for _, el := range els {
				txt, err := el.Text(ctx)
				if err == nil && strings.Contains(extract.Fold(txt), want) {
					kept = append(kept, el)
				}
			}
			els = kept
		}
		if len(els) > 0 {
			return els, i, nil
		}
	}
	return nil, -1, nil
}

// CollectModal opens quick-view modals one by one. A modal that fails to
// open or render is skipped; three consecutive failures end the run.
func (d *Driver) CollectModal(ctx context.Context, cfg ModalConfig) Result {
	m := NewMachine()
	var records []model.Record
	keys := model.NewIdentifierSet()

	if _, err := d.load(ctx, cfg.StartURL, cfg.StepDelay); err != nil {
		d.logger.Error("listing page failed to load", "url", cfg.StartURL, "error", err)
		d.fire(m, EventLoadFailed)
		return d.finish(m, Result{Err: err})
	}
	d.fire(m, EventLoaded)

	total, failures := 0, 0
	for !m.Done() {
		i := m.Steps()
		switch m.State() {
		case StateExtracting:
			// Modals re-render the list, so triggers are located again each time.
			triggers, via, err := d.locate(ctx, cfg.Triggers)
			if err != nil {
				d.stepFailed(ctx, m, "locate triggers", err)
				continue
			}
			if i == 0 {
				total = len(triggers)
				if total == 0 {
					d.logger.Info("no quick-view triggers on page")
					d.shot(ctx, "no-triggers", "no quick-view triggers")
					d.fire(m, EventEmpty)
					continue
				}
				d.logger.Debug("quick-view triggers found", "count", total, "locator", cfg.Triggers[via])
			}
			if i >= len(triggers) {
				d.fire(m, EventStalled)
				continue
			}

			rec, err := d.openModal(ctx, triggers[i], cfg)
			d.closeModal(ctx, cfg)
			if err != nil {
				failures++
				d.logger.Warn("quick view skipped", "index", i, "error", err)
				if failures >= maxModalFailures {
					d.stepFailed(ctx, m, "open modal", err)
					continue
				}
				d.fire(m, EventSkipped)
				continue
			}
			failures = 0
			if key := model.RecordKey(rec); key != "" && !keys.Add(key) {
				d.fire(m, EventSkipped)
				continue
			}
			records = append(records, rec)
			if cfg.MaxCards > 0 && len(records) >= cfg.MaxCards {
				d.fire(m, EventItemLimit)
				continue
			}
			d.fire(m, EventGrew)

		case StateAdvancing:
			if i+1 >= total {
				d.fire(m, EventNoControl)
				continue
			}
			d.fire(m, EventAdvanced)
		}
	}
	return d.finish(m, Result{Records: records})
}

func (d *Driver) openModal(ctx context.Context, trigger browser.Element, cfg ModalConfig) (model.Record, error) {
	if err := trigger.Click(ctx); err != nil {
		return model.Record{}, fmt.Errorf("clicking trigger: %w", err)
	}
	if err := d.settle.Wait(ctx, cfg.StepDelay); err != nil {
		return model.Record{}, err
	}
	snap, err := d.capture(ctx)
	if err != nil {
		return model.Record{}, err
	}
	root := snap
	if idx, subs := snap.FirstMatching(cfg.Containers); idx >= 0 {
		root = subs[0]
	}
	return cfg.Extractor.Extract(root, nil), nil
}

// closeModal clicks the first close control found, else presses Escape.
func (d *Driver) closeModal(ctx context.Context, cfg ModalConfig) {
	if ctx.Err() != nil {
		return
	}
	if els, _, err := d.locate(ctx, cfg.Closers); err == nil && len(els) > 0 {
		if err := els[0].Click(ctx); err == nil {
			return
		}
	}
	if err := d.page.Press(ctx, browser.KeyEscape); err != nil {
		d.logger.Debug("escape failed", "error", err)
	}
}
