// Package site holds the declarative definitions of the job sites jobharvest
// knows, and merges configuration overrides into them.
package site

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/amishk599/jobharvest/internal/config"
	"github.com/amishk599/jobharvest/internal/discovery"
	"github.com/amishk599/jobharvest/internal/extract"
	"github.com/amishk599/jobharvest/internal/model"
)

// Strategy is a site's discovery flow.
type Strategy string

const (
	// StrategyIDs collects identifiers from the listing, then visits each
	// detail page.
	StrategyIDs Strategy = "ids"
	// StrategyCards extracts records straight from listing cards.
	StrategyCards Strategy = "cards"
	// StrategyModal opens each card's quick-view overlay.
	StrategyModal Strategy = "modal"
)

// ListingSchema covers what a listing card or quick-view modal can show.
var ListingSchema = model.MustSchema("listing", 1,
	model.FieldSourceSite, model.FieldJobID, model.FieldTitle, model.FieldCompany,
	model.FieldDescription, model.FieldType, model.FieldLocation, model.FieldSalary,
	model.FieldSalaryType, model.FieldMaxSalary, model.FieldPostingDate,
	model.FieldExperience, model.FieldURL,
)

// DetailSchema is the full export schema; detail pages can fill any column.
var DetailSchema = model.OutputSchema

// Site is a resolved site definition.
type Site struct {
	Name      string
	Preset    string
	Strategy  Strategy
	StartURL  string
	Advance   discovery.AdvanceMode
	StepDelay time.Duration
	MaxSteps  int
	MaxPages  int
	MaxCards  int
	PageURL   string
	DetailURL string
	Enrich    bool

	// IDSelector and IDAttr locate identifiers for StrategyIDs.
	IDSelector string
	IDAttr     string

	// Cards is the card cascade for StrategyCards.
	Cards []string

	Triggers   []discovery.Locator
	Containers []string
	Closers    []discovery.Locator

	// Listing extracts cards and modals, Detail extracts detail pages.
	Listing extract.Profile
	Detail  extract.Profile
}

// IDConfig, CardConfig, ModalConfig and EnrichConfig translate the site into
// discovery settings.
func (s Site) IDConfig() discovery.IDConfig {
	return discovery.IDConfig{
		StartURL:  s.StartURL,
		Advance:   s.Advance,
		StepDelay: s.StepDelay,
		MaxSteps:  s.MaxSteps,
		Selector:  s.IDSelector,
		Attr:      s.IDAttr,
	}
}

func (s Site) CardConfig(ex *extract.Extractor) discovery.CardConfig {
	return discovery.CardConfig{
		StartURL:  s.StartURL,
		Selectors: s.Cards,
		Extractor: ex,
		MaxCards:  s.MaxCards,
		MaxPages:  s.MaxPages,
		PageURL:   s.PageURL,
		StepDelay: s.StepDelay,
	}
}

func (s Site) ModalConfig(ex *extract.Extractor) discovery.ModalConfig {
	return discovery.ModalConfig{
		StartURL:   s.StartURL,
		Triggers:   s.Triggers,
		Containers: s.Containers,
		Closers:    s.Closers,
		Extractor:  ex,
		MaxCards:   s.MaxCards,
		StepDelay:  s.StepDelay,
	}
}

func (s Site) EnrichConfig(ex *extract.Extractor) discovery.EnrichConfig {
	return discovery.EnrichConfig{Extractor: ex, StepDelay: s.StepDelay}
}

// ListingExtractor and DetailExtractor build extractors over the site's
// profiles.
func (s Site) ListingExtractor(logger *slog.Logger, opts ...extract.Option) *extract.Extractor {
	return extract.New(s.Listing, logger.With("site", s.Name, "profile", "listing"), opts...)
}

func (s Site) DetailExtractor(logger *slog.Logger, opts ...extract.Option) *extract.Extractor {
	return extract.New(s.Detail, logger.With("site", s.Name, "profile", "detail"), opts...)
}

// Host returns the host of StartURL for rate limiting.
func (s Site) Host() string {
	return hostOf(s.StartURL)
}

// Resolve merges cfg over its preset. Fields left zero in cfg keep the
// preset's values.
func Resolve(cfg config.SiteConfig) (Site, error) {
	var s Site
	if cfg.Preset != "" {
		p, ok := Preset(cfg.Preset)
		if !ok {
			return Site{}, fmt.Errorf("site %q: unknown preset %q (known: %v)", cfg.Name, cfg.Preset, PresetNames())
		}
		s = p
	} else {
		s = custom(cfg.Name)
	}
	s.Name = cfg.Name

	if cfg.Strategy != "" {
		s.Strategy = Strategy(cfg.Strategy)
	}
	if cfg.StartURL != "" {
		s.StartURL = cfg.StartURL
	}
	if cfg.Advance != "" {
		s.Advance = discovery.AdvanceMode(cfg.Advance)
	}
	if cfg.StepDelay > 0 {
		s.StepDelay = cfg.StepDelay
	}
	if cfg.MaxSteps > 0 {
		s.MaxSteps = cfg.MaxSteps
	}
	if cfg.MaxPages > 0 {
		s.MaxPages = cfg.MaxPages
	}
	if cfg.MaxCards > 0 {
		s.MaxCards = cfg.MaxCards
	}
	if cfg.PageURL != "" {
		s.PageURL = cfg.PageURL
	}
	if len(cfg.CardSelectors) > 0 {
		s.Cards = slices.Clone(cfg.CardSelectors)
	}
	if cfg.DetailURL != "" {
		s.DetailURL = cfg.DetailURL
	}
	if cfg.Enrich != nil {
		s.Enrich = *cfg.Enrich
	}

	// Overrides are applied in a fixed order so errors are deterministic.
	for _, name := range slices.Sorted(maps.Keys(cfg.Fields)) {
		if err := s.overrideField(name, cfg.Fields[name]); err != nil {
			return Site{}, fmt.Errorf("site %q: %w", cfg.Name, err)
		}
	}
	if err := s.check(); err != nil {
		return Site{}, fmt.Errorf("site %q: %w", cfg.Name, err)
	}
	return s, nil
}

// overrideField replaces the cascade of one field with CSS selectors from
// configuration, in every profile whose schema has the field. The field's
// predicate and fallback are kept.
func (s *Site) overrideField(name string, selectors []string) error {
	if len(selectors) == 0 {
		return nil
	}
	found := false
	for _, p := range []*extract.Profile{&s.Listing, &s.Detail} {
		if p.Schema == nil || !p.Schema.Has(name) {
			continue
		}
		found = true
		p.Fields = withCascade(p.Fields, name, extract.CSSCascade(selectors...))
	}
	if !found {
		return fmt.Errorf("fields: %q is not a known column", name)
	}
	return nil
}

func withCascade(fields []extract.FieldSpec, name string, c extract.Cascade) []extract.FieldSpec {
	out := slices.Clone(fields)
	for i := range out {
		if out[i].Name == name {
			out[i].Cascade = c
			return out
		}
	}
	return append(out, extract.FieldSpec{Name: name, Cascade: c})
}

func (s Site) check() error {
	if s.StartURL == "" {
		return fmt.Errorf("start_url is required")
	}
	switch s.Strategy {
	case StrategyIDs:
		if s.DetailURL == "" {
			return fmt.Errorf("strategy ids needs detail_url with %s", discovery.IDToken)
		}
	case StrategyCards:
		if len(s.Cards) == 0 {
			return fmt.Errorf("strategy cards needs card_selectors")
		}
	case StrategyModal:
		if len(s.Triggers) == 0 {
			return fmt.Errorf("strategy modal needs quick-view triggers")
		}
	default:
		return fmt.Errorf("unknown strategy %q", s.Strategy)
	}
	if s.Enrich && s.Detail.Schema == nil {
		return fmt.Errorf("enrich needs a detail profile")
	}
	return nil
}
