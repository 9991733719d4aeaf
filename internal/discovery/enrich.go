package discovery

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/amishk599/jobharvest/internal/extract"
	"github.com/amishk599/jobharvest/internal/model"
)

// IDToken is replaced with the job identifier in detail URL templates.
const IDToken = "{id}"

// EnrichConfig configures the detail-page pass.
type EnrichConfig struct {
	Extractor *extract.Extractor // detail profile
	StepDelay time.Duration
}

// DetailURL fills template with id.
func DetailURL(template, id string) string {
	return strings.ReplaceAll(template, IDToken, url.PathEscape(id))
}

func (d *Driver) detail(ctx context.Context, target string, seed map[string]string, cfg EnrichConfig) (model.Record, error) {
	if err := d.page.Navigate(ctx, target, d.nav); err != nil {
		return model.Record{}, err
	}
	if err := d.settle.Wait(ctx, cfg.StepDelay); err != nil {
		return model.Record{}, err
	}
	markup, err := d.page.Content(ctx)
	if err != nil {
		return model.Record{}, err
	}
	base := d.page.URL()
	if base == "" {
		base = target
	}
	return cfg.Extractor.ExtractMarkup(markup, base, seed)
}

// stopEnrichment reports whether err ends the whole pass rather than the
// current record.
func stopEnrichment(ctx context.Context, err error) bool {
	return ctx.Err() != nil || model.IsTimeout(err)
}

// EnrichIDs visits the detail page of every identifier. An identifier whose
// page fails to load keeps a record with only its job_id and url; only
// unparseable pages are skipped. A navigation timeout ends the pass and the
// remaining identifiers keep their bare records.
func (d *Driver) EnrichIDs(ctx context.Context, ids []string, template string, cfg EnrichConfig) ([]model.Record, model.StopReason) {
	schema := cfg.Extractor.Schema()
	records := make([]model.Record, 0, len(ids))
	reason := model.StopNone
	for i, id := range ids {
		target := DetailURL(template, id)
		seed := map[string]string{
			model.FieldJobID: id,
			model.FieldURL:   target,
		}
		if reason != model.StopNone {
			records = append(records, model.NewRecord(schema, seed))
			continue
		}
		rec, err := d.detail(ctx, target, seed, cfg)
		switch {
		case err == nil:
			d.logger.Debug("detail extracted", "id", id, "progress", i+1, "total", len(ids), "filled", rec.Filled())
			records = append(records, rec)
		case stopEnrichment(ctx, err):
			d.logger.Warn("enrichment stopped", "done", i, "total", len(ids), "error", err)
			d.shot(ctx, "detail-"+id, "timeout")
			reason = model.StopStepFailed
			records = append(records, model.NewRecord(schema, seed))
		case errors.Is(err, model.ErrMalformedSnapshot):
			d.logger.Warn("detail page unparseable, skipping", "id", id, "error", err)
		default:
			d.logger.Warn("detail page failed, keeping id", "id", id, "error", err)
			records = append(records, model.NewRecord(schema, seed))
		}
	}
	return records, reason
}

// EnrichRecords follows each card's url and merges the detail record over the
// card: non-empty detail values win. Cards without a url, or whose detail page
// fails, are kept as they are. A navigation timeout stops the pass; the
// remaining cards are kept unenriched.
func (d *Driver) EnrichRecords(ctx context.Context, cards []model.Record, cfg EnrichConfig) ([]model.Record, model.StopReason) {
	schema := cfg.Extractor.Schema()
	out := make([]model.Record, 0, len(cards))
	reason := model.StopNone
	for i, card := range cards {
		base := card.Widen(schema)
		target := card.Get(model.FieldURL)
		if target == "" || reason != model.StopNone {
			out = append(out, base)
			continue
		}
		seed := map[string]string{model.FieldURL: target}
		if id := card.Get(model.FieldJobID); id != "" {
			seed[model.FieldJobID] = id
		}
		rec, err := d.detail(ctx, target, seed, cfg)
		switch {
		case err == nil:
			out = append(out, model.Merge(schema, base, rec))
		case stopEnrichment(ctx, err):
			d.logger.Warn("enrichment stopped", "done", i, "total", len(cards), "error", err)
			reason = model.StopStepFailed
			out = append(out, base)
		case errors.Is(err, model.ErrMalformedSnapshot):
			d.logger.Warn("detail page unparseable, keeping card", "url", target, "error", err)
			out = append(out, base)
		default:
			d.logger.Warn("detail page failed, keeping card", "url", target, "error", err)
			out = append(out, base)
		}
	}
	return out, reason
}
