package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Options configures exponential backoff for bounded retries. This package is
// for I/O that should give up (archive uploads, validation reads); unbounded
// status waits live in internal/poll.
type Options struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// Default backoff settings used when opts are zero/invalid.
var Default = Options{
	MaxAttempts:  5,
	InitialDelay: 300 * time.Millisecond,
	MaxDelay:     8 * time.Second,
	Multiplier:   2.0,
	Jitter:       true,
}

// Retryable decides whether an error is worth another attempt.
type Retryable func(error) bool

// Do executes fn with retries and exponential backoff until it succeeds,
// context is done, or attempts are exhausted. Returns the last error.
func Do(ctx context.Context, opts Options, isRetryable Retryable, fn func(context.Context) error) error {
	if opts.MaxAttempts <= 0 {
		opts = Default
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	backoff := opts.InitialDelay

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(err) {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return err
		}

		if err := sleep(ctx, jittered(rng, backoff, opts)); err != nil {
			return err
		}
		backoff = next(backoff, opts)
	}
}

// jittered applies +/-20% jitter and caps at MaxDelay.
func jittered(rng *rand.Rand, backoff time.Duration, opts Options) time.Duration {
	d := backoff
	if opts.Jitter {
		delta := float64(backoff) * 0.2
		j := (rng.Float64()*2 - 1) * delta
		d = time.Duration(math.Max(0, float64(backoff)+j))
	}
	if d > opts.MaxDelay {
		d = opts.MaxDelay
	}
	return d
}

// next grows the backoff with an overflow guard and a cap.
func next(backoff time.Duration, opts Options) time.Duration {
	n := time.Duration(float64(backoff) * opts.Multiplier)
	if n < backoff {
		n = backoff
	}
	if n > opts.MaxDelay {
		n = opts.MaxDelay
	}
	return n
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
