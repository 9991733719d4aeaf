package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// CleanText collapses whitespace runs (including non-breaking spaces) into a
// single space and trims the result.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "head": true,
}

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "table": true, "tr": true,
	"ul": true, "li": true, "button": true, "label": true, "time": true,
}

// renderer turns a DOM subtree into text with one line per block element.
type renderer struct {
	b       strings.Builder
	bullets bool
}

func (r *renderer) newline() {
	r.b.WriteByte('\n')
}

func (r *renderer) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		r.text(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if skipTags[n.Data] {
			return
		}
		if n.Data == "br" {
			r.newline()
			return
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		r.newline()
		if r.bullets && n.Data == "li" {
			r.b.WriteString("• ")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c)
	}
	if block {
		r.newline()
	}
}

// brMarker matches line-break markup that survived as literal text, e.g.
// descriptions stored HTML-escaped inside a data attribute.
var brMarker = regexp.MustCompile(`(?i)<br\s*/?>`)

// text writes a text node with markup whitespace collapsed, keeping a single
// space at the edges so inline siblings don't run together.
func (r *renderer) text(s string) {
	parts := brMarker.Split(s, -1)
	for i, p := range parts {
		if i > 0 {
			r.newline()
		}
		r.segment(p)
	}
}

func (r *renderer) segment(s string) {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	if strings.TrimSpace(s) == "" {
		if s != "" {
			r.b.WriteByte(' ')
		}
		return
	}
	if isSpace(s[0]) {
		r.b.WriteByte(' ')
	}
	r.b.WriteString(strings.Join(strings.Fields(s), " "))
	if isSpace(s[len(s)-1]) {
		r.b.WriteByte(' ')
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}

// lines splits rendered text into trimmed, non-empty lines.
func (r *renderer) lines() []string {
	raw := strings.Split(r.b.String(), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = CleanText(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func renderLines(sel *goquery.Selection, bullets bool) []string {
	r := &renderer{bullets: bullets}
	for _, n := range sel.Nodes {
		r.walk(n)
		r.newline()
	}
	return r.lines()
}

// VisibleLines returns the human-visible text of sel, one entry per rendered
// line, skipping script and style content.
func VisibleLines(sel *goquery.Selection) []string {
	return renderLines(sel, false)
}

// FlattenDescription renders a description block as plain text: <br> and
// block boundaries become newlines, list items are prefixed with "• ", and
// blank-line runs collapse.
func FlattenDescription(sel *goquery.Selection) string {
	return strings.Join(renderLines(sel, true), "\n")
}
