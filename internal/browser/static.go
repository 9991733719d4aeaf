package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/amishk599/jobharvest/internal/model"
)

// StaticBrowser fetches pages over plain HTTP without running scripts. It
// serves sites whose listings are server-rendered and is what tests use
// against httptest servers.
type StaticBrowser struct {
	opts Options
}

func NewStatic(opts Options) *StaticBrowser {
	return &StaticBrowser{opts: opts}
}

func (b *StaticBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &staticPage{opts: b.opts}, nil
}

func (b *StaticBrowser) Close() error { return nil }

type staticPage struct {
	opts   Options
	url    string
	markup string
	doc    *goquery.Document
}

func (p *staticPage) collector(ctx context.Context, timeout time.Duration) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(p.opts.userAgent()),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(timeout)
	if p.opts.Locale != "" {
		c.OnRequest(func(r *colly.Request) {
			r.Headers.Set("Accept-Language", p.opts.Locale)
		})
	}
	return c
}

func (p *staticPage) Navigate(ctx context.Context, target string, opts NavigateOptions) error {
	if err := ctx.Err(); err != nil {
		return &model.NavigationError{URL: target, Err: err}
	}
	timeout := p.opts.timeout(opts.Timeout)
	c := p.collector(ctx, timeout)

	var (
		body       []byte
		finalURL   string
		status     int
		retryAfter time.Duration
	)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		status = r.StatusCode
		finalURL = r.Request.URL.String()
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r == nil {
			return
		}
		status = r.StatusCode
		if r.Headers != nil {
			retryAfter = parseRetryAfter(r.Headers.Get("Retry-After"))
		}
	})

	err := c.Visit(target)
	if status >= 400 {
		return &model.NavigationError{URL: target, StatusCode: status, RetryAfter: retryAfter}
	}
	if err != nil {
		if isTimeout(err) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s: %v", model.ErrNavigationTimeout, timeout, err)
		}
		return &model.NavigationError{URL: target, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return &model.NavigationError{URL: target, Err: fmt.Errorf("%w: %v", model.ErrMalformedSnapshot, err)}
	}
	if finalURL == "" {
		finalURL = target
	}
	p.url = finalURL
	p.markup = string(body)
	p.doc = doc
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func (p *staticPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.markup, nil
}

func (p *staticPage) Find(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.doc == nil {
		return nil, nil
	}
	var out []Element
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, staticElement{page: p, sel: s})
	})
	return out, nil
}

// Scroll is a no-op: there is no script to load more content.
func (p *staticPage) Scroll(ctx context.Context, _ int) error {
	return ctx.Err()
}

func (p *staticPage) Press(ctx context.Context, _ string) error {
	return ctx.Err()
}

// Screenshot saves the fetched markup next to path.
func (p *staticPage) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.WriteFile(path+".html", []byte(p.markup), 0o644)
}

func (p *staticPage) URL() string { return p.url }

func (p *staticPage) Close() error { return nil }

type staticElement struct {
	page *staticPage
	sel  *goquery.Selection
}

func (e staticElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(e.sel.Text()), " "), nil
}

func (e staticElement) Attr(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, _ := e.sel.Attr(name)
	return v, nil
}

// Click follows anchors. Anything else needs a scripting engine.
func (e staticElement) Click(ctx context.Context) error {
	href, ok := e.sel.Attr("href")
	if goquery.NodeName(e.sel) != "a" || !ok || href == "" || strings.HasPrefix(href, "#") {
		return ErrNotInteractive
	}
	base, err := url.Parse(e.page.url)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", href, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", href, err)
	}
	return e.page.Navigate(ctx, base.ResolveReference(ref).String(), NavigateOptions{})
}
