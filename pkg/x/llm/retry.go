package llm

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff computes exponential retry delays with +/-20% jitter.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	// NoJitter returns the exact exponential delay. Tests use it.
	NoJitter bool
}

// Delay returns the wait before retry number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.Initial
	if attempt > 0 {
		d = b.Initial << attempt
		if d <= 0 || (b.Max > 0 && d > b.Max) {
			d = b.Max
		}
	}
	if b.NoJitter || d <= 0 {
		return d
	}
	return time.Duration(float64(d) * (0.8 + rand.Float64()*0.4))
}

// Wait sleeps for d or until ctx is done. It reports whether the full
// delay elapsed.
func Wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
