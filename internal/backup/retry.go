package backup

import (
	"context"
	"time"

	"github.com/juju/clock"
)

// RetryPolicy bounds how often a failed download is retried. The delay
// before retry n is n × BackoffFactor.
type RetryPolicy struct {
	// MaxAttempts is the number of retries after the first call.
	MaxAttempts   int
	BackoffFactor time.Duration
}

// DefaultRetryPolicy retries three times, sleeping 10s, 20s then 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BackoffFactor: 10 * time.Second,
	}
}

// NewState returns a fresh RetryState for one retried operation.
func (p RetryPolicy) NewState() *RetryState {
	return &RetryState{
		MaxAttempts:   p.MaxAttempts,
		BackoffFactor: p.BackoffFactor,
	}
}

// RetryState counts retries of one operation. Attempt never exceeds
// MaxAttempts.
type RetryState struct {
	Attempt       int
	MaxAttempts   int
	BackoffFactor time.Duration
}

// Exhausted reports whether no retries are left.
func (s *RetryState) Exhausted() bool {
	return s.Attempt >= s.MaxAttempts
}

// Backoff is the delay before the current attempt.
func (s *RetryState) Backoff() time.Duration {
	return time.Duration(s.Attempt) * s.BackoffFactor
}

// retryFunc is notified before each backoff sleep.
type retryFunc func(state *RetryState, delay time.Duration, err error)

// retry calls fn until it succeeds, ctx is done or state is exhausted.
// Sleeps go through clk so tests can observe the schedule.
func retry(ctx context.Context, clk clock.Clock, state *RetryState, onRetry retryFunc, fn func(context.Context) error) error {
	for {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		// Only the run's own context stops retries. A client timeout also
		// matches context.DeadlineExceeded and is retried like any failure.
		if ctx.Err() != nil {
			return err
		}

		if state.Exhausted() {
			return &RetriesExhaustedError{Attempts: state.Attempt + 1, Err: err}
		}

		state.Attempt++
		delay := state.Backoff()
		if onRetry != nil {
			onRetry(state, delay, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(delay):
		}
	}
}
