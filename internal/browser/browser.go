// Package browser wraps the rendering engines used to drive listing pages.
// Discovery code only sees the Page and Element interfaces.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WaitCondition selects when a navigation counts as settled.
type WaitCondition string

const (
	WaitLoad             WaitCondition = "load"
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	WaitNetworkIdle      WaitCondition = "networkidle"
)

// KeyEscape is the key name understood by every engine's Press.
const KeyEscape = "Escape"

// NavigateOptions controls one navigation.
type NavigateOptions struct {
	Wait    WaitCondition
	Timeout time.Duration
}

// ErrNotInteractive is returned when an engine cannot act on an element, e.g.
// clicking a button on a statically fetched page.
var ErrNotInteractive = errors.New("element is not interactive")

// Page is one browser tab owned by a single site run.
type Page interface {
	Navigate(ctx context.Context, url string, opts NavigateOptions) error
	// Content returns the current rendered markup.
	Content(ctx context.Context) (string, error)
	Find(ctx context.Context, selector string) ([]Element, error)
	Scroll(ctx context.Context, dy int) error
	Press(ctx context.Context, key string) error
	// Screenshot is diagnostic only.
	Screenshot(ctx context.Context, path string) error
	URL() string
	Close() error
}

// Element is a live handle on one node of a Page.
type Element interface {
	Text(ctx context.Context) (string, error)
	Attr(ctx context.Context, name string) (string, error)
	Click(ctx context.Context) error
}

// Browser hands out isolated pages.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Options configures every engine.
type Options struct {
	Headless   bool
	Locale     string
	UserAgent  string
	Width      int
	Height     int
	NavTimeout time.Duration
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

func (o Options) userAgent() string {
	if o.UserAgent != "" {
		return o.UserAgent
	}
	return defaultUserAgent
}

func (o Options) viewport() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 1920
	}
	if h <= 0 {
		h = 1080
	}
	return w, h
}

func (o Options) timeout(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	if o.NavTimeout > 0 {
		return o.NavTimeout
	}
	return 60 * time.Second
}

// Engine names accepted by New.
const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
	EngineStatic     = "static"
)

// New starts the named engine.
func New(engine string, opts Options) (Browser, error) {
	switch engine {
	case EnginePlaywright, "":
		return NewPlaywright(opts)
	case EngineChromedp:
		return NewChrome(opts)
	case EngineStatic:
		return NewStatic(opts), nil
	default:
		return nil, fmt.Errorf("unknown browser engine %q", engine)
	}
}
