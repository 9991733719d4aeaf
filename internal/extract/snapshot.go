package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobharvest/internal/model"
)

// Snapshot is a static, parsed copy of rendered markup: a whole page, one
// listing card, or a modal container.
type Snapshot struct {
	sel   *goquery.Selection
	base  *url.URL
	lines []string
	text  string
	ready bool
}

// Parse builds a snapshot from captured markup. baseURL is used to resolve
// relative links and may be empty. Empty or non-markup input is reported as
// model.ErrMalformedSnapshot.
func Parse(markup, baseURL string) (*Snapshot, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, fmt.Errorf("%w: empty markup", model.ErrMalformedSnapshot)
	}
	if !strings.Contains(markup, "<") {
		return nil, fmt.Errorf("%w: no elements in markup", model.ErrMalformedSnapshot)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedSnapshot, err)
	}
	var base *url.URL
	if baseURL != "" {
		if base, err = url.Parse(baseURL); err != nil {
			return nil, fmt.Errorf("%w: base url %q: %v", model.ErrMalformedSnapshot, baseURL, err)
		}
	}
	return &Snapshot{sel: doc.Selection, base: base}, nil
}

// FromSelection wraps an already parsed subtree.
func FromSelection(sel *goquery.Selection, base *url.URL) *Snapshot {
	return &Snapshot{sel: sel, base: base}
}

// Selection exposes the underlying document for callers that need raw
// traversal.
func (s *Snapshot) Selection() *goquery.Selection { return s.sel }

// Find returns every element matching selector, the snapshot root included,
// so a card's own attributes are reachable. An invalid selector matches
// nothing.
func (s *Snapshot) Find(selector string) *goquery.Selection {
	return s.sel.Filter(selector).AddSelection(s.sel.Find(selector))
}

// Sub returns one snapshot per element matching selector, sharing the base URL.
func (s *Snapshot) Sub(selector string) []*Snapshot {
	var out []*Snapshot
	s.sel.Find(selector).Each(func(_ int, el *goquery.Selection) {
		out = append(out, FromSelection(el, s.base))
	})
	return out
}

// FirstMatching tries selectors in order and returns the sub-snapshots of the
// first selector matching at least one element, with that selector's index.
// It returns -1 when nothing matches.
func (s *Snapshot) FirstMatching(selectors []string) (int, []*Snapshot) {
	for i, sel := range selectors {
		if subs := s.Sub(sel); len(subs) > 0 {
			return i, subs
		}
	}
	return -1, nil
}

// Attrs collects the non-empty values of attr on every element matching
// selector, in document order.
func (s *Snapshot) Attrs(selector, attr string) []string {
	var out []string
	s.Find(selector).Each(func(_ int, el *goquery.Selection) {
		if v, ok := el.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	})
	return out
}

// Lines returns the visible text split into non-empty lines.
func (s *Snapshot) Lines() []string {
	s.render()
	return s.lines
}

// Text returns the visible text joined with newlines.
func (s *Snapshot) Text() string {
	s.render()
	return s.text
}

func (s *Snapshot) render() {
	if s.ready {
		return
	}
	s.lines = VisibleLines(s.sel)
	s.text = strings.Join(s.lines, "\n")
	s.ready = true
}

// HTML returns the outer markup of the snapshot root.
func (s *Snapshot) HTML() string {
	h, err := goquery.OuterHtml(s.sel)
	if err != nil {
		return ""
	}
	return h
}

// Resolve turns ref into an absolute URL against the snapshot's base. It
// returns ref unchanged when there is no base or ref does not parse.
func (s *Snapshot) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || s.base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return s.base.ResolveReference(u).String()
}
