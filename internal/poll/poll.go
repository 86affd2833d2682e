// Package poll implements the fixed-interval wait used for asynchronous cloud
// operations (snapshot creation, volume copy). Unlike internal/retry it is
// unbounded: a wait ends only on success, a fatal condition, or context
// cancellation. Transient errors between attempts are logged and absorbed.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultInterval matches the provider's recommended status-poll cadence.
const DefaultInterval = 5 * time.Second

// Func is invoked once per attempt. Returning done=true ends the wait.
// Returning an error wrapped with Fatal ends the wait with that error; any
// other error is treated as transient and the wait continues after the
// interval.
type Func func(ctx context.Context) (done bool, err error)

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as non-recoverable for Wait.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Wait runs fn every interval until it reports done, returns a fatal error,
// or ctx is cancelled. A non-positive interval falls back to DefaultInterval.
func Wait(ctx context.Context, interval time.Duration, fn Func) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	attempt := 0
	for {
		attempt++
		done, err := fn(ctx)
		if err != nil {
			var fe *fatalError
			if errors.As(err, &fe) {
				return fe.err
			}
			log.Debug().Err(err).Str("action", "poll").Int("attempt", attempt).
				Msg("transient error, retrying after interval")
		} else if done {
			return nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
