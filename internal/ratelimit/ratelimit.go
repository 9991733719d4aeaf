package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobharvest/internal/browser"
)

// HostLimiter enforces a minimum delay between navigations to the same host.
// Sites on different hosts never block each other.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter // key: host name
	delayFor func(host string) time.Duration
	burst    int
}

// NewHostLimiter creates a limiter. delayFor returns the minimum gap for a
// host; a zero gap means unlimited.
func NewHostLimiter(delayFor func(host string) time.Duration, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		delayFor: delayFor,
		burst:    burst,
	}
}

// Every returns a delayFor func that uses the same gap for every host.
func Every(d time.Duration) func(string) time.Duration {
	return func(string) time.Duration { return d }
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		limit := rate.Inf
		if d := h.delayFor(host); d > 0 {
			limit = rate.Every(d)
		}
		l = rate.NewLimiter(limit, h.burst)
		h.limiters[host] = l
	}
	return l
}

// Wait blocks until a navigation to host is allowed.
// Returns an error if the context is cancelled while waiting.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if err := h.limiter(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", host, err)
	}
	return nil
}

// Page is a decorator that waits on the host limiter before every
// navigation, including clicks that may navigate.
// All pages targeting the same host should share the same limiter instance.
type Page struct {
	browser.Page
	limiter *HostLimiter
}

// NewPage wraps a browser.Page with host-level rate limiting.
func NewPage(inner browser.Page, limiter *HostLimiter) *Page {
	return &Page{Page: inner, limiter: limiter}
}

// Navigate waits for the target host, then delegates.
func (p *Page) Navigate(ctx context.Context, rawURL string, opts browser.NavigateOptions) error {
	if err := p.limiter.Wait(ctx, hostOf(rawURL)); err != nil {
		return err
	}
	return p.Page.Navigate(ctx, rawURL, opts)
}

// Find returns elements whose link clicks are rate limited against the
// current page's host. Clicks on buttons and modal closers pass through.
func (p *Page) Find(ctx context.Context, selector string) ([]browser.Element, error) {
	els, err := p.Page.Find(ctx, selector)
	if err != nil {
		return nil, err
	}
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = &element{Element: el, page: p}
	}
	return out, nil
}

type element struct {
	browser.Element
	page *Page
}

func (e *element) Click(ctx context.Context) error {
	if href, err := e.Attr(ctx, "href"); err == nil && href != "" && href != "#" {
		if err := e.page.limiter.Wait(ctx, hostOf(e.page.URL())); err != nil {
			return err
		}
	}
	return e.Element.Click(ctx)
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Hostname()
}
