package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/amishk599/jobharvest/internal/browser"
)

func TestWait_SameHost_EnforcesMinDelay(t *testing.T) {
	limiter := NewHostLimiter(Every(100*time.Millisecond), 1)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "www.elempleo.com"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "www.elempleo.com"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentHosts_NoCrossBlocking(t *testing.T) {
	limiter := NewHostLimiter(Every(200*time.Millisecond), 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "www.elempleo.com"); err != nil {
		t.Fatalf("elempleo wait: %v", err)
	}

	// Immediately call for another host, should NOT block.
	start := time.Now()
	if err := limiter.Wait(ctx, "cr.computrabajo.com"); err != nil {
		t.Fatalf("computrabajo wait: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > 50*time.Millisecond {
		t.Errorf("expected computrabajo wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_HostOverride(t *testing.T) {
	delays := map[string]time.Duration{"slow.test": 150 * time.Millisecond}
	limiter := NewHostLimiter(func(host string) time.Duration { return delays[host] }, 1)
	ctx := context.Background()

	// Zero delay means unlimited.
	start := time.Now()
	for range 5 {
		if err := limiter.Wait(ctx, "fast.test"); err != nil {
			t.Fatalf("fast wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected unlimited host to pass instantly, got %v", elapsed)
	}

	_ = limiter.Wait(ctx, "slow.test")
	start = time.Now()
	if err := limiter.Wait(ctx, "slow.test"); err != nil {
		t.Fatalf("slow wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 120*time.Millisecond {
		t.Errorf("expected >= 120ms wait for overridden host, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewHostLimiter(Every(5*time.Second), 1) // long delay
	ctx := context.Background()

	// First call to drain the burst.
	if err := limiter.Wait(ctx, "www.elempleo.com"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	if err := limiter.Wait(ctx, "www.elempleo.com"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

// --- Mocks for the Page decorator ---

type recordingPage struct {
	browser.Page
	navigated int
	clicked   int
}

func (p *recordingPage) Navigate(_ context.Context, _ string, _ browser.NavigateOptions) error {
	p.navigated++
	return nil
}

func (p *recordingPage) Find(_ context.Context, _ string) ([]browser.Element, error) {
	return []browser.Element{&recordingElement{page: p}}, nil
}

func (p *recordingPage) URL() string { return "https://www.elempleo.com/cr/ofertas-empleo/" }

type recordingElement struct {
	browser.Element
	page *recordingPage
}

func (e *recordingElement) Attr(_ context.Context, name string) (string, error) {
	if name == "href" {
		return "/cr/ofertas-empleo/?page=2", nil
	}
	return "", nil
}

func (e *recordingElement) Click(_ context.Context) error {
	e.page.clicked++
	return nil
}

func TestPage_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewHostLimiter(Every(100*time.Millisecond), 1)
	inner := &recordingPage{}
	page := NewPage(inner, limiter)
	ctx := context.Background()

	// First call seeds the limiter, then delegates.
	if err := page.Navigate(ctx, "https://www.elempleo.com/cr/ofertas-empleo/", browser.NavigateOptions{}); err != nil {
		t.Fatalf("first navigate: %v", err)
	}
	if inner.navigated != 1 {
		t.Fatal("inner page was not called on first navigate")
	}

	// A click on the same host has to wait for the limiter.
	els, err := page.Find(ctx, "a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	start := time.Now()
	if err := els[0].Click(ctx); err != nil {
		t.Fatalf("click: %v", err)
	}
	elapsed := time.Since(start)

	if inner.clicked != 1 {
		t.Fatal("inner element was not clicked")
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on click, got %v", elapsed)
	}
}

func TestHostOf(t *testing.T) {
	cases := map[string]string{
		"https://www.elempleo.com/cr/ofertas-trabajo/1": "www.elempleo.com",
		"http://localhost:8080/jobs":                    "localhost",
		"not a url":                                     "not a url",
	}
	for in, want := range cases {
		if got := hostOf(in); got != want {
			t.Errorf("hostOf(%q) = %q, want %q", in, got, want)
		}
	}
}
