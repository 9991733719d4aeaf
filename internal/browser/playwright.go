package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/amishk599/jobharvest/internal/model"
)

const elementTimeoutMs = 10000

// PlaywrightBrowser drives Chromium through playwright. Each page gets its
// own browser context so concurrent site runs share no cookies or storage.
type PlaywrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
}

// NewPlaywright launches Chromium. The playwright driver and browsers must be
// installed beforehand (`go run github.com/playwright-community/playwright-go/cmd/playwright install chromium`).
func NewPlaywright(opts Options) (*PlaywrightBrowser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launching chromium: %w", err)
	}
	return &PlaywrightBrowser{pw: pw, browser: b, opts: opts}, nil
}

func (b *PlaywrightBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := b.opts.viewport()
	ctxOpts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(b.opts.userAgent()),
		Viewport:  &playwright.Size{Width: w, Height: h},
	}
	if b.opts.Locale != "" {
		ctxOpts.Locale = playwright.String(b.opts.Locale)
	}
	bctx, err := b.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("creating browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	return &playwrightPage{bctx: bctx, page: page, opts: b.opts}, nil
}

func (b *PlaywrightBrowser) Close() error {
	if err := b.browser.Close(); err != nil {
		b.pw.Stop()
		return fmt.Errorf("closing chromium: %w", err)
	}
	return b.pw.Stop()
}

type playwrightPage struct {
	bctx playwright.BrowserContext
	page playwright.Page
	opts Options
}

func waitState(w WaitCondition) *playwright.WaitUntilState {
	switch w {
	case WaitDOMContentLoaded:
		return playwright.WaitUntilStateDomcontentloaded
	case WaitNetworkIdle:
		return playwright.WaitUntilStateNetworkidle
	default:
		return playwright.WaitUntilStateLoad
	}
}

func (p *playwrightPage) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	if err := ctx.Err(); err != nil {
		return &model.NavigationError{URL: url, Err: err}
	}
	timeout := p.opts.timeout(opts.Timeout)
	resp, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: waitState(opts.Wait),
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			err = fmt.Errorf("%w after %s: %v", model.ErrNavigationTimeout, timeout, err)
		}
		return &model.NavigationError{URL: url, Err: err}
	}
	if resp != nil && resp.Status() >= 400 {
		return &model.NavigationError{URL: url, StatusCode: resp.Status()}
	}
	return nil
}

func (p *playwrightPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

func (p *playwrightPage) Find(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	locs, err := p.page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("locating %q: %w", selector, err)
	}
	out := make([]Element, len(locs))
	for i, l := range locs {
		out[i] = playwrightElement{loc: l}
	}
	return out, nil
}

func (p *playwrightPage) Scroll(ctx context.Context, dy int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Mouse().Wheel(0, float64(dy))
}

func (p *playwrightPage) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Keyboard().Press(key)
}

func (p *playwrightPage) Screenshot(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return err
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Close() error {
	if err := p.page.Close(); err != nil {
		p.bctx.Close()
		return err
	}
	return p.bctx.Close()
}

type playwrightElement struct {
	loc playwright.Locator
}

func (e playwrightElement) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(elementTimeoutMs)})
}

func (e playwrightElement) Attr(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: playwright.Float(elementTimeoutMs)})
}

func (e playwrightElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.loc.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(elementTimeoutMs)})
}
