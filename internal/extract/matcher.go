package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Matcher is one candidate lookup of a selector cascade. Match returns every
// candidate value it finds in document order; an empty result is a miss.
type Matcher interface {
	Match(s *Snapshot) []string
	String() string
}

type cssMatcher struct {
	selector string
}

// CSS matches the visible text of elements selected by a CSS selector.
func CSS(selector string) Matcher {
	return cssMatcher{selector: selector}
}

func (m cssMatcher) Match(s *Snapshot) []string {
	var out []string
	s.Find(m.selector).Each(func(_ int, el *goquery.Selection) {
		if t := strings.Join(VisibleLines(el), " "); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func (m cssMatcher) String() string { return "css(" + m.selector + ")" }

type attrMatcher struct {
	selector string
	attr     string
}

// Attr matches an attribute value, e.g. Attr("meta[property='og:url']", "content").
func Attr(selector, attr string) Matcher {
	return attrMatcher{selector: selector, attr: attr}
}

func (m attrMatcher) Match(s *Snapshot) []string {
	return s.Attrs(m.selector, m.attr)
}

func (m attrMatcher) String() string { return fmt.Sprintf("attr(%s@%s)", m.selector, m.attr) }

type blockMatcher struct {
	selector string
}

// Block matches a multi-paragraph element and flattens it with
// FlattenDescription.
func Block(selector string) Matcher {
	return blockMatcher{selector: selector}
}

func (m blockMatcher) Match(s *Snapshot) []string {
	var out []string
	s.Find(m.selector).Each(func(_ int, el *goquery.Selection) {
		if t := FlattenDescription(el); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func (m blockMatcher) String() string { return "block(" + m.selector + ")" }

type patternMatcher struct {
	re    *regexp.Regexp
	group int
}

// Pattern matches a regular expression against the visible text and yields
// the given capture group (0 for the whole match). It panics on an invalid
// expression, so build patterns at configuration time.
func Pattern(expr string, group int) Matcher {
	return patternMatcher{re: regexp.MustCompile(expr), group: group}
}

func (m patternMatcher) Match(s *Snapshot) []string {
	var out []string
	for _, sub := range m.re.FindAllStringSubmatch(s.Text(), -1) {
		if m.group < len(sub) {
			if v := strings.TrimSpace(sub[m.group]); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func (m patternMatcher) String() string { return "pattern(" + m.re.String() + ")" }

// Label maps a token found in text to a normalized value.
type Label struct {
	Token string
	Value string
}

type keywordMatcher struct {
	scope  string
	labels []Label
}

// Keyword classifies text: it yields the Value of the first label whose token
// occurs in the scoped text, ignoring case and accents. An empty scope means
// the whole snapshot.
func Keyword(scope string, labels ...Label) Matcher {
	return keywordMatcher{scope: scope, labels: labels}
}

func (m keywordMatcher) Match(s *Snapshot) []string {
	text := s.Text()
	if m.scope != "" {
		text = strings.Join(VisibleLines(s.Find(m.scope)), "\n")
	}
	if text == "" {
		return nil
	}
	folded := Fold(text)
	for _, l := range m.labels {
		if strings.Contains(folded, Fold(l.Token)) {
			return []string{l.Value}
		}
	}
	return nil
}

func (m keywordMatcher) String() string {
	tokens := make([]string, len(m.labels))
	for i, l := range m.labels {
		tokens[i] = l.Token
	}
	return fmt.Sprintf("keyword(%s:%s)", m.scope, strings.Join(tokens, "|"))
}

// Cascade is an ordered list of matchers for one field.
type Cascade []Matcher

// CSSCascade builds a cascade of CSS text matchers from plain selectors, the
// shape used in configuration files.
func CSSCascade(selectors ...string) Cascade {
	c := make(Cascade, 0, len(selectors))
	for _, sel := range selectors {
		c = append(c, CSS(sel))
	}
	return c
}

// Resolve evaluates matchers in priority order and returns the first value
// accepted by accept (nil accepts any non-empty value), together with the
// index of the winning matcher. It returns -1 and false on a miss.
func (c Cascade) Resolve(s *Snapshot, accept Predicate) (string, int, bool) {
	for i, m := range c {
		for _, v := range m.Match(s) {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if accept == nil || accept(v) {
				return v, i, true
			}
		}
	}
	return "", -1, false
}
