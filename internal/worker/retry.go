package worker

import "time"

// Backoff computes the wait before retrying a failed attempt: the base
// delay doubles per attempt and never exceeds the cap.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

// Wait returns the delay after the given 1-based attempt.
func (b Backoff) Wait(attempt int) time.Duration {
	delay := b.Base
	if delay <= 0 {
		delay = time.Second
	}
	for ; attempt > 1; attempt-- {
		delay *= 2
		if b.Cap > 0 && delay >= b.Cap {
			return b.Cap
		}
	}
	if b.Cap > 0 && delay > b.Cap {
		return b.Cap
	}
	return delay
}
