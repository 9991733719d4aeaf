package extract

import (
	"log/slog"
	"time"

	"github.com/amishk599/jobharvest/internal/model"
)

// FieldSpec declares how one field is extracted.
type FieldSpec struct {
	Name     string
	Cascade  Cascade
	Accept   Predicate // nil accepts any non-empty value
	Fallback LineRule  // optional full-text heuristic
	URL      bool      // resolve the value against the snapshot base
}

// Profile is the declarative extraction setup for one kind of snapshot
// (listing card, detail page or modal) of one site.
type Profile struct {
	Schema   *model.Schema
	Fields   []FieldSpec
	Defaults map[string]string
	// Contact enables apply_email/apply_url/apply_type classification.
	Contact *ContactRule
	// PlaceholderExpiry fills expiry and deadline with today+30 days when no
	// expiry was scraped.
	PlaceholderExpiry bool
	// DeriveSalary fills salary_type and max_salary from the salary text.
	DeriveSalary bool
}

// Source tells where a field value came from.
type Source int

const (
	SourceMiss Source = iota
	SourceCascade
	SourceFallback
	SourceSeed
	SourceDerived
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceCascade:
		return "cascade"
	case SourceFallback:
		return "fallback"
	case SourceSeed:
		return "seed"
	case SourceDerived:
		return "derived"
	case SourceDefault:
		return "default"
	}
	return "miss"
}

// Outcome reports how one field was resolved.
type Outcome struct {
	Field  string
	Source Source
	Via    string // winning matcher or line rule
}

// Extractor turns snapshots into records. It never fails: lookups that find
// nothing leave the field empty.
type Extractor struct {
	profile Profile
	now     func() time.Time
	logger  *slog.Logger
}

// Option customizes an Extractor.
type Option func(*Extractor)

// WithClock overrides the time source used for placeholder dates.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// New returns an extractor for profile.
func New(profile Profile, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{profile: profile, now: time.Now, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Schema returns the schema of produced records.
func (e *Extractor) Schema() *model.Schema { return e.profile.Schema }

// Extract populates a record from s. seed carries values known before
// extraction (site name, job id, detail URL); extracted values win over seeds.
func (e *Extractor) Extract(s *Snapshot, seed map[string]string) model.Record {
	rec, _ := e.ExtractReport(s, seed)
	return rec
}

// ExtractMarkup parses markup and extracts it. The only error is
// model.ErrMalformedSnapshot, in which case the caller skips the record.
func (e *Extractor) ExtractMarkup(markup, baseURL string, seed map[string]string) (model.Record, error) {
	s, err := Parse(markup, baseURL)
	if err != nil {
		return model.Record{}, err
	}
	return e.Extract(s, seed), nil
}

// ExtractReport is Extract plus a per-field account of how each value was
// obtained.
func (e *Extractor) ExtractReport(s *Snapshot, seed map[string]string) (model.Record, []Outcome) {
	p := e.profile
	b := model.NewRecordBuilder(p.Schema)
	outcomes := make([]Outcome, 0, len(p.Fields)+4)

	for k, v := range seed {
		b.Set(k, v)
	}

	for _, f := range p.Fields {
		if !p.Schema.Has(f.Name) {
			continue
		}
		o := e.resolve(s, f, b)
		if o.Source == SourceMiss || o.Source == SourceSeed {
			e.logger.Debug("field not extracted",
				"field", f.Name,
				"schema", p.Schema.String(),
				"error", model.ErrSelectorMiss,
				"seeded", o.Source == SourceSeed,
			)
		}
		outcomes = append(outcomes, o)
	}

	if p.Contact != nil {
		outcomes = append(outcomes, e.applyContact(s, b)...)
	}
	if p.DeriveSalary {
		outcomes = append(outcomes, deriveSalary(b)...)
	}
	outcomes = append(outcomes, e.applyExpiry(b)...)

	for k, v := range p.Defaults {
		if b.SetIfEmpty(k, v) {
			outcomes = append(outcomes, Outcome{Field: k, Source: SourceDefault})
		}
	}
	return b.Build(), outcomes
}

func (e *Extractor) resolve(s *Snapshot, f FieldSpec, b *model.RecordBuilder) Outcome {
	if v, i, ok := f.Cascade.Resolve(s, f.Accept); ok {
		if f.URL {
			v = s.Resolve(v)
		}
		b.Set(f.Name, v)
		return Outcome{Field: f.Name, Source: SourceCascade, Via: f.Cascade[i].String()}
	}
	if f.Fallback != nil {
		if v, ok := f.Fallback.Pick(s.Lines()); ok {
			b.Set(f.Name, v)
			return Outcome{Field: f.Name, Source: SourceFallback, Via: f.Fallback.String()}
		}
	}
	if b.Get(f.Name) != "" {
		return Outcome{Field: f.Name, Source: SourceSeed}
	}
	return Outcome{Field: f.Name, Source: SourceMiss}
}

func (e *Extractor) applyContact(s *Snapshot, b *model.RecordBuilder) []Outcome {
	c := e.profile.Contact.Classify(s)
	var out []Outcome
	if c.Email != "" && b.SetIfEmpty(model.FieldApplyEmail, c.Email) {
		out = append(out, Outcome{Field: model.FieldApplyEmail, Source: SourceDerived, Via: "contact"})
	}
	if c.URL != "" && b.SetIfEmpty(model.FieldApplyURL, c.URL) {
		out = append(out, Outcome{Field: model.FieldApplyURL, Source: SourceDerived, Via: "contact"})
	}
	if c.Type != "" && b.SetIfEmpty(model.FieldApplyType, c.Type) {
		out = append(out, Outcome{Field: model.FieldApplyType, Source: SourceDerived, Via: "contact"})
	}
	return out
}

func deriveSalary(b *model.RecordBuilder) []Outcome {
	salary := b.Get(model.FieldSalary)
	if salary == "" {
		return nil
	}
	var out []Outcome
	if t := SalaryType(salary); t != "" && b.SetIfEmpty(model.FieldSalaryType, t) {
		out = append(out, Outcome{Field: model.FieldSalaryType, Source: SourceDerived, Via: "salary"})
	}
	if m := MaxSalary(salary); m != "" && b.SetIfEmpty(model.FieldMaxSalary, m) {
		out = append(out, Outcome{Field: model.FieldMaxSalary, Source: SourceDerived, Via: "salary"})
	}
	return out
}

// applyExpiry marks scraped expiry dates and, when the profile asks for it,
// fills the placeholder.
func (e *Extractor) applyExpiry(b *model.RecordBuilder) []Outcome {
	if expiry := b.Get(model.FieldExpiryDate); expiry != "" {
		b.Set(model.FieldExpirySource, model.ExpiryScraped)
		if b.SetIfEmpty(model.FieldDeadline, expiry) {
			return []Outcome{{Field: model.FieldDeadline, Source: SourceDerived, Via: "expiry"}}
		}
		return nil
	}
	if !e.profile.PlaceholderExpiry {
		return nil
	}
	date := PlaceholderExpiry(e.now())
	b.Set(model.FieldExpiryDate, date)
	b.SetIfEmpty(model.FieldDeadline, date)
	b.Set(model.FieldExpirySource, model.ExpiryPlaceholder)
	return []Outcome{
		{Field: model.FieldExpiryDate, Source: SourceDerived, Via: "placeholder"},
		{Field: model.FieldExpirySource, Source: SourceDerived, Via: "placeholder"},
	}
}
