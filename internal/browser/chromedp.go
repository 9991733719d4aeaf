package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/amishk599/jobharvest/internal/model"
)

// ChromeBrowser drives a local Chrome through the DevTools protocol. Pages
// are tabs of one browser process.
type ChromeBrowser struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	opts          Options
}

// NewChrome starts Chrome and opens its first (blank) target.
func NewChrome(opts Options) (*ChromeBrowser, error) {
	w, h := opts.viewport()
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(w, h),
		chromedp.UserAgent(opts.userAgent()),
	)
	if opts.Locale != "" {
		allocOpts = append(allocOpts, chromedp.Flag("lang", opts.Locale))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}
	return &ChromeBrowser{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		opts:          opts,
	}, nil
}

func (b *ChromeBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tab, cancel := chromedp.NewContext(b.browserCtx)
	if err := chromedp.Run(tab); err != nil {
		cancel()
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	return &chromePage{tab: tab, cancel: cancel, opts: b.opts}, nil
}

func (b *ChromeBrowser) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}

type chromePage struct {
	tab    context.Context
	cancel context.CancelFunc
	opts   Options
	url    string
}

// run executes actions on the tab, bounded by both ctx and timeout.
func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string, opts NavigateOptions) error {
	if err := ctx.Err(); err != nil {
		return &model.NavigationError{URL: url, Err: err}
	}
	timeout := p.opts.timeout(opts.Timeout)
	runCtx, cancel := context.WithTimeout(p.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err == nil && opts.Wait != WaitDOMContentLoaded {
		err = chromedp.Run(runCtx, chromedp.WaitReady("body", chromedp.ByQuery))
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("%w after %s", model.ErrNavigationTimeout, timeout)
		}
		return &model.NavigationError{URL: url, Err: err}
	}
	p.url = url
	if resp != nil && resp.Status >= 400 {
		return &model.NavigationError{URL: url, StatusCode: int(resp.Status)}
	}
	return nil
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, elementTimeoutMs*time.Millisecond, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("reading markup: %w", err)
	}
	return html, nil
}

func (p *chromePage) Find(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, elementTimeoutMs*time.Millisecond,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("locating %q: %w", selector, err)
	}
	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = chromeElement{page: p, node: n}
	}
	return out, nil
}

func (p *chromePage) Scroll(ctx context.Context, dy int) error {
	return p.run(ctx, elementTimeoutMs*time.Millisecond,
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", dy), nil))
}

func (p *chromePage) Press(ctx context.Context, key string) error {
	if key == KeyEscape {
		key = kb.Escape
	}
	return p.run(ctx, elementTimeoutMs*time.Millisecond, chromedp.KeyEvent(key))
}

func (p *chromePage) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := p.run(ctx, 30*time.Second, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0o644)
}

func (p *chromePage) URL() string {
	var loc string
	if err := p.run(context.Background(), 5*time.Second, chromedp.Location(&loc)); err != nil || loc == "" {
		return p.url
	}
	return loc
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

type chromeElement struct {
	page *chromePage
	node *cdp.Node
}

func (e chromeElement) Text(ctx context.Context) (string, error) {
	var s string
	err := e.page.run(ctx, elementTimeoutMs*time.Millisecond,
		chromedp.Text([]cdp.NodeID{e.node.NodeID}, &s, chromedp.ByNodeID))
	return strings.TrimSpace(s), err
}

// Attr reads from the node as captured by Find.
func (e chromeElement) Attr(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.node.AttributeValue(name), nil
}

func (e chromeElement) Click(ctx context.Context) error {
	return e.page.run(ctx, elementTimeoutMs*time.Millisecond, chromedp.MouseClickNode(e.node))
}
