package discovery

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobharvest/internal/extract"
	"github.com/amishk599/jobharvest/internal/model"
)

// CardConfig configures card collection.
type CardConfig struct {
	StartURL string
	// Selectors is the card cascade, tried in order on every page; the first
	// selector matching at least one element supplies the cards.
	Selectors []string
	Extractor *extract.Extractor
	MaxCards  int // 0 means no limit
	MaxPages  int // 0 or 1 means the start page only
	// PageURL, when set, builds page N by replacing {page}. Otherwise more
	// pages are reached through the next control.
	PageURL   string
	StepDelay time.Duration
}

// PageToken is replaced with the page number in CardConfig.PageURL.
const PageToken = "{page}"

// CollectCards extracts one record per listing card. Pagination stops on a
// page with no cards, on a page that adds no unseen cards, at MaxPages or at
// MaxCards.
func (d *Driver) CollectCards(ctx context.Context, cfg CardConfig) Result {
	m := NewMachine()
	var records []model.Record
	keys := model.NewIdentifierSet()
	maxPages := max(cfg.MaxPages, 1)

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
			page := m.Steps() + 1
			idx, cards := snap.FirstMatching(cfg.Selectors)
			if idx < 0 {
				d.logger.Info("no cards on page", "page", page)
				d.shot(ctx, "page"+strconv.Itoa(page), "no cards")
				d.fire(m, EventEmpty)
				continue
			}
			added := 0
			for _, card := range cards {
				if cfg.MaxCards > 0 && len(records) >= cfg.MaxCards {
					break
				}
				rec := cfg.Extractor.Extract(card, nil)
				if key := model.RecordKey(rec); key != "" && !keys.Add(key) {
					continue
				}
				records = append(records, rec)
				added++
			}
			d.logger.Debug("extracted cards",
				"page", page,
				"selector", cfg.Selectors[idx],
				"cards", len(cards),
				"new", added,
				"total", len(records),
			)
			switch {
			case cfg.MaxCards > 0 && len(records) >= cfg.MaxCards:
				d.fire(m, EventItemLimit)
			case added == 0:
				d.fire(m, EventStalled)
			default:
				d.fire(m, EventGrew)
			}

		case StateAdvancing:
			if m.Steps()+1 >= maxPages {
				d.fire(m, EventStepLimit)
				continue
			}
			next, ev, err := d.advanceCards(ctx, snap, cfg, m.Steps()+2)
			if err != nil {
				d.stepFailed(ctx, m, "next page", err)
				continue
			}
			if ev == EventAdvanced {
				snap = next
			}
			d.fire(m, ev)
		}
	}
	return d.finish(m, Result{Records: records})
}

func (d *Driver) advanceCards(ctx context.Context, snap *extract.Snapshot, cfg CardConfig, page int) (*extract.Snapshot, Event, error) {
	if cfg.PageURL != "" {
		url := strings.ReplaceAll(cfg.PageURL, PageToken, strconv.Itoa(page))
		next, err := d.load(ctx, url, cfg.StepDelay)
		if err != nil {
			return nil, EventStepFailed, err
		}
		return next, EventAdvanced, nil
	}
	ok, err := d.clickNext(ctx, snap)
	if !ok {
		return nil, EventNoControl, nil
	}
	if err != nil {
		return nil, EventStepFailed, err
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
