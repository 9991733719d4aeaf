package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobharvest/internal/browser"
	"github.com/amishk599/jobharvest/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockPage calls a function on each navigation, tracking call count.
// Methods other than Navigate are never exercised.
type mockPage struct {
	browser.Page
	calls int
	fn    func(attempt int) error
}

func (m *mockPage) Navigate(_ context.Context, _ string, _ browser.NavigateOptions) error {
	m.calls++
	return m.fn(m.calls)
}

func (m *mockPage) URL() string { return "https://example.test/jobs" }

func navErr(status int) error {
	return &model.NavigationError{URL: "https://example.test/jobs", StatusCode: status}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := &mockPage{fn: func(_ int) error { return nil }}

	p := NewPage(mock, 2, 10*time.Millisecond, discardLogger())
	if err := p.Navigate(context.Background(), "https://example.test/jobs", browser.NavigateOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesOn5xx_SucceedsOnSecondAttempt(t *testing.T) {
	mock := &mockPage{fn: func(attempt int) error {
		if attempt == 1 {
			return navErr(503)
		}
		return nil
	}}

	p := NewPage(mock, 2, 10*time.Millisecond, discardLogger())
	if err := p.Navigate(context.Background(), "https://example.test/jobs", browser.NavigateOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_RetriesOnNavigationTimeout(t *testing.T) {
	mock := &mockPage{fn: func(attempt int) error {
		if attempt < 3 {
			return &model.NavigationError{URL: "https://example.test/jobs", Err: model.ErrNavigationTimeout}
		}
		return nil
	}}

	p := NewPage(mock, 2, 5*time.Millisecond, discardLogger())
	if err := p.Navigate(context.Background(), "https://example.test/jobs", browser.NavigateOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryOn4xx(t *testing.T) {
	mock := &mockPage{fn: func(_ int) error { return navErr(404) }}

	p := NewPage(mock, 2, 10*time.Millisecond, discardLogger())
	err := p.Navigate(context.Background(), "https://example.test/jobs", browser.NavigateOptions{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var ne *model.NavigationError
	if !errors.As(err, &ne) || ne.StatusCode != 404 {
		t.Fatalf("expected NavigationError with status 404, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryMalformedSnapshot(t *testing.T) {
	mock := &mockPage{fn: func(_ int) error { return model.ErrMalformedSnapshot }}

	p := NewPage(mock, 2, 10*time.Millisecond, discardLogger())
	err := p.Navigate(context.Background(), "https://example.test/jobs", browser.NavigateOptions{})
	if !errors.Is(err, model.ErrMalformedSnapshot) {
		t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockPage{fn: func(_ int) error { return navErr(500) }}

	p := NewPage(mock, 2, 10*time.Millisecond, discardLogger())
	if err := p.Navigate(context.Background(), "https://example.test/jobs", browser.NavigateOptions{}); err == nil {
		t.Fatal("expected error after max retries, got nil")
	}
	// 1 initial + 2 retries = 3
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", mock.calls)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockPage{fn: func(_ int) error { return navErr(500) }}

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel immediately so the backoff sleep is interrupted.
	cancel()

	p := NewPage(mock, 2, time.Second, discardLogger())
	err := p.Navigate(ctx, "https://example.test/jobs", browser.NavigateOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}

func TestRetry_RetryAfterTakesPrecedence(t *testing.T) {
	p := NewPage(nil, 2, time.Hour, discardLogger())
	err := &model.NavigationError{StatusCode: 429, RetryAfter: 7 * time.Second}
	if got := p.backoffDelay(3, err); got != 7*time.Second {
		t.Fatalf("expected Retry-After delay 7s, got %v", got)
	}
}

func TestRetry_BackoffDoublesWithinJitter(t *testing.T) {
	p := NewPage(nil, 3, 100*time.Millisecond, discardLogger())
	for attempt, want := range map[int]time.Duration{1: 100 * time.Millisecond, 2: 200 * time.Millisecond, 3: 400 * time.Millisecond} {
		got := p.backoffDelay(attempt, errors.New("reset"))
		lo, hi := time.Duration(float64(want)*0.7), time.Duration(float64(want)*1.3)
		if got < lo || got > hi {
			t.Errorf("attempt %d: delay %v outside [%v, %v]", attempt, got, lo, hi)
		}
	}
}

func TestRetry_DelegatesOtherMethods(t *testing.T) {
	mock := &mockPage{fn: func(_ int) error { return nil }}
	p := NewPage(mock, 1, time.Millisecond, discardLogger())
	if p.URL() != "https://example.test/jobs" {
		t.Fatalf("expected URL from inner page, got %q", p.URL())
	}
}
