package discovery

import (
	"context"
	"math/rand/v2"
	"time"
)

// Settler waits for client-side rendering after each page action. Rendering
// completion has no reliable signal, so it sleeps the step delay plus a random
// jitter in [0, Jitter).
type Settler struct {
	Jitter time.Duration
	sleep  func(context.Context, time.Duration) error
}

func NewSettler(jitter time.Duration) *Settler {
	return &Settler{Jitter: jitter, sleep: sleepCtx}
}

// Wait returns early with ctx's error when ctx ends.
func (s *Settler) Wait(ctx context.Context, base time.Duration) error {
	d := base
	if s.Jitter > 0 {
		d += rand.N(s.Jitter)
	}
	if d <= 0 {
		return ctx.Err()
	}
	return s.sleep(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
