package discovery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobharvest/internal/browser"
	"github.com/amishk599/jobharvest/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePage serves canned markup per URL and replays scripted interactions.
type fakePage struct {
	pages    map[string]string
	navErr   map[string]error
	current  string
	markup   string
	navs     []string
	scrolls  int
	presses  []string
	onScroll func(n int) string
	// onClick handles clicks on non-anchor elements; it returns the new markup.
	onClick  func(sel *goquery.Selection) (string, error)
	clickErr map[string]error // keyed by href
}

func newFakePage(pages map[string]string) *fakePage {
	return &fakePage{pages: pages, navErr: map[string]error{}, clickErr: map[string]error{}}
}

func (p *fakePage) Navigate(ctx context.Context, u string, _ browser.NavigateOptions) error {
	p.navs = append(p.navs, u)
	if err := p.navErr[u]; err != nil {
		return &model.NavigationError{URL: u, Err: err}
	}
	markup, ok := p.pages[u]
	if !ok {
		return &model.NavigationError{URL: u, StatusCode: 404}
	}
	p.current, p.markup = u, markup
	return nil
}

func (p *fakePage) Content(ctx context.Context) (string, error) {
	return p.markup, ctx.Err()
}

func (p *fakePage) Find(ctx context.Context, selector string) ([]browser.Element, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.markup))
	if err != nil {
		return nil, err
	}
	var out []browser.Element
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, fakeElement{page: p, sel: s})
	})
	return out, nil
}

func (p *fakePage) Scroll(ctx context.Context, dy int) error {
	p.scrolls++
	if p.onScroll != nil {
		p.markup = p.onScroll(p.scrolls)
	}
	return nil
}

func (p *fakePage) Press(ctx context.Context, key string) error {
	p.presses = append(p.presses, key)
	return nil
}

func (p *fakePage) Screenshot(ctx context.Context, path string) error { return nil }
func (p *fakePage) URL() string                                       { return p.current }
func (p *fakePage) Close() error                                      { return nil }

type fakeElement struct {
	page *fakePage
	sel  *goquery.Selection
}

func (e fakeElement) Text(ctx context.Context) (string, error) {
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e fakeElement) Attr(ctx context.Context, name string) (string, error) {
	v, _ := e.sel.Attr(name)
	return v, nil
}

func (e fakeElement) Click(ctx context.Context) error {
	if href, ok := e.sel.Attr("href"); ok && goquery.NodeName(e.sel) == "a" {
		if err := e.page.clickErr[href]; err != nil {
			return err
		}
		base, _ := url.Parse(e.page.current)
		ref, err := url.Parse(href)
		if err != nil {
			return err
		}
		return e.page.Navigate(ctx, base.ResolveReference(ref).String(), browser.NavigateOptions{})
	}
	if e.page.onClick == nil {
		return errors.New("element not clickable")
	}
	markup, err := e.page.onClick(e.sel)
	if err != nil {
		return err
	}
	e.page.markup = markup
	return nil
}
