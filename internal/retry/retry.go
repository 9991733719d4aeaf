package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/jobharvest/internal/browser"
	"github.com/amishk599/jobharvest/internal/model"
)

// Page is a decorator that retries transient navigation failures with
// exponential backoff and jitter. Every other call goes straight to the
// wrapped page.
type Page struct {
	browser.Page
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewPage wraps a browser.Page with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewPage(inner browser.Page, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Page {
	return &Page{
		Page:       inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Navigate loads url, retrying on transient errors.
func (p *Page) Navigate(ctx context.Context, url string, opts browser.NavigateOptions) error {
	err := p.Page.Navigate(ctx, url, opts)
	if err == nil {
		return nil
	}

	if !isRetryable(err) {
		return err
	}

	lastErr := err
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		delay := p.backoffDelay(attempt, lastErr)

		p.logger.Warn("retrying after transient error",
			"url", url,
			"attempt", attempt,
			"max_retries", p.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		err = p.Page.Navigate(ctx, url, opts)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}
		lastErr = err
	}

	return lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (p *Page) backoffDelay(attempt int, err error) time.Duration {
	var navErr *model.NavigationError
	if errors.As(err, &navErr) && navErr.RetryAfter > 0 {
		return navErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := p.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation, never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Markup that does not parse will not parse on the next try either.
	if errors.Is(err, model.ErrMalformedSnapshot) {
		return false
	}

	var navErr *model.NavigationError
	if errors.As(err, &navErr) && navErr.StatusCode != 0 {
		// 429 and 5xx are retryable, other 4xx are not.
		return navErr.StatusCode == 429 || navErr.StatusCode >= 500
	}

	// Timeouts and network errors.
	return true
}
