package sync

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// Значения по умолчанию для повторных попыток
const (
	DefaultBackoffBase   = time.Second
	DefaultBackoffCap    = time.Minute
	DefaultJitterPercent = 20
)

// Backoff computes the delay before the next attempt of a failed mutation.
type Backoff struct {
	base   time.Duration
	cap    time.Duration
	jitter uint64
}

// NewBackoff creates an exponential backoff with +/- DefaultJitterPercent
// jitter, capped at maxDelay.
func NewBackoff(base, maxDelay time.Duration) *Backoff {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if maxDelay < base {
		maxDelay = base
	}
	return &Backoff{base: base, cap: maxDelay, jitter: DefaultJitterPercent}
}

// Delay returns the wait before retry number attempt (1-based).
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	// Дальше задержка в любом случае упирается в cap
	if attempt > 32 {
		attempt = 32
	}

	// Каждый вызов строит новую цепочку: состояние попыток хранится в записи, а не здесь
	next := retry.NewExponential(b.base)
	if b.jitter > 0 {
		next = retry.WithJitterPercent(b.jitter, next)
	}
	next = retry.WithCappedDuration(b.cap, next)

	var d time.Duration
	for i := 0; i < attempt; i++ {
		d, _ = next.Next()
	}

	return d
}
