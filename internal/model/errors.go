package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNavigationTimeout means the page or network stopped responding. The
	// current site run stops and keeps what it has.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrSelectorMiss means no cascade candidate produced a plausible value.
	ErrSelectorMiss = errors.New("selector miss")
	// ErrMalformedSnapshot means captured markup could not be parsed into a
	// document. The current card or record is skipped.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// NavigationError wraps a failed page load so retry logic can inspect it.
type NavigationError struct {
	URL        string
	StatusCode int           // zero when the engine does not expose one
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *NavigationError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("navigate %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("navigate %s: HTTP %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("navigate %s", e.URL)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a navigation timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrNavigationTimeout)
}
