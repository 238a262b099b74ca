// Package transport wraps outbound API calls with the provider's concurrency
// and rate limits.
//
// Every call composes, in fixed order: concurrency gate → pacing delay →
// dispatch → exponential-backoff retry on rate-limit-class errors → one-shot
// refresh-and-retry on authorization failures. Call sites supply their own
// retry budget; the limiter has no notion of per-endpoint semantics.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tapedeck/tapedeck/internal/shared"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

const (
	// MaxInFlight is the system-wide cap on concurrent outbound calls.
	MaxInFlight = 5

	// paceInterval is the fixed inter-request delay smoothing bursts.
	paceInterval = 50 * time.Millisecond
)

// StatusError is an HTTP-status failure from the provider.
type StatusError struct {
	Code    int
	Summary string
}

func (e *StatusError) Error() string {
	if e.Summary == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Summary)
}

// Refresher performs a token refresh on behalf of the limiter. Implemented by
// auth.Session.
type Refresher interface {
	CanRefresh() bool
	RefreshAccessToken(ctx context.Context) error
}

// Limiter throttles and retries outbound calls.
type Limiter struct {
	gate      *semaphore.Weighted
	pace      *rate.Limiter
	refresher Refresher
	logger    *log.Logger

	// backoffUnit scales the 2^attempt retry wait; one second in production,
	// overridden in tests.
	backoffUnit time.Duration
}

// Opts contains configuration for creating a Limiter.
type Opts struct {
	Refresher   Refresher
	Logger      *log.Logger
	BackoffUnit time.Duration
}

// NewLimiter creates a Limiter with the provider limits (5 in flight, one
// dispatch per 50ms).
func NewLimiter(opts Opts) *Limiter {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = time.Second
	}
	return &Limiter{
		gate:        semaphore.NewWeighted(MaxInFlight),
		pace:        rate.NewLimiter(rate.Every(paceInterval), 1),
		refresher:   opts.Refresher,
		logger:      opts.Logger,
		backoffUnit: opts.BackoffUnit,
	}
}

// Retryable reports whether err is rate-limit-class: an HTTP 429, or an opaque
// network failure indistinguishable from throttling. Any other status is
// terminal (or re-authenticable, handled separately).
func Retryable(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == 429
	}
	// Non-status errors at this layer are network failures.
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// unauthorized reports whether err is an HTTP 401.
func unauthorized(err error) bool {
	var status *StatusError
	return errors.As(err, &status) && status.Code == 401
}

// Do runs fn under the gate and pacing delay, retrying rate-limit-class
// failures up to maxRetries times with 2^attempt backoff, and re-issuing the
// call exactly once after a successful token refresh on a 401.
func (l *Limiter) Do(ctx context.Context, maxRetries int, fn func(context.Context) error) error {
	if err := l.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.gate.Release(1)

	if err := l.pace.Wait(ctx); err != nil {
		return err
	}

	err := l.dispatch(ctx, maxRetries, fn)
	if err == nil {
		return nil
	}

	if unauthorized(err) && l.refresher != nil && l.refresher.CanRefresh() {
		l.logger.Debug("401 response, refreshing token")
		if refreshErr := l.refresher.RefreshAccessToken(ctx); refreshErr != nil {
			// Refresh failed: the original 401 is the caller's problem.
			return err
		}
		return l.dispatch(ctx, maxRetries, fn)
	}

	return err
}

// dispatch runs fn with the backoff-retry loop. A call that always fails
// retryably is attempted exactly maxRetries+1 times.
func (l *Limiter) dispatch(ctx context.Context, maxRetries int, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if unauthorized(err) || !Retryable(err) || attempt >= maxRetries {
			return err
		}

		wait := l.backoffUnit << uint(attempt)
		l.logger.Debug("retrying after backoff", "attempt", attempt+1, "wait", wait, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
