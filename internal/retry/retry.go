// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry runs fallible operations with capped exponential backoff and
// jitter. It is shared by every provider fetch in the pipeline.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/snowball/pkg/types"
)

const (
	defaultMaxAttempts    = 3
	defaultBaseDelay      = 1 * time.Second
	defaultMaxDelay       = 60 * time.Second
	defaultJitterFraction = 0.1
)

// ExhaustedError is returned when every attempt of an operation failed.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retrier holds a backoff policy and the hooks used to apply it.
// The zero value is not usable; construct with New.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	jitter      float64

	logger *log.Logger

	// Sleep replaces the context-aware timer. Tests set it to record delays.
	Sleep SleepFunc

	// Rand returns a uniform value in [0, 1). Tests set it to make jitter
	// deterministic.
	Rand func() float64
}

// New builds a Retrier from cfg, filling unset fields with defaults
// (3 attempts, 1s base, 60s cap, 10% jitter). A negative JitterFraction
// disables jitter. A nil logger discards progress messages.
func New(cfg types.RetryConfig, logger *log.Logger) *Retrier {
	r := &Retrier{
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
		jitter:      cfg.JitterFraction,
		logger:      logger,
		Sleep:       sleepContext,
		Rand:        rand.Float64,
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	if r.baseDelay <= 0 {
		r.baseDelay = defaultBaseDelay
	}
	if r.maxDelay <= 0 {
		r.maxDelay = defaultMaxDelay
	}
	if r.maxDelay < r.baseDelay {
		r.maxDelay = r.baseDelay
	}
	if r.jitter < 0 {
		r.jitter = 0
	} else if cfg.JitterFraction == 0 {
		r.jitter = defaultJitterFraction
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	return r
}

// MaxAttempts returns the attempt ceiling.
func (r *Retrier) MaxAttempts() int { return r.maxAttempts }

// Backoff returns the delay before retrying after the given zero-based
// failed attempt: min(base*2^attempt, max) plus uniform jitter in
// [0, jitter*delay].
func (r *Retrier) Backoff(attempt int) time.Duration {
	d := float64(r.baseDelay) * math.Pow(2, float64(attempt))
	if d > float64(r.maxDelay) || math.IsInf(d, 1) {
		d = float64(r.maxDelay)
	}
	return time.Duration(d + r.Rand()*r.jitter*d)
}

// Do runs fn until it succeeds or the attempt ceiling is reached. Before each
// retry it logs the operation, the attempt number and the delay, then sleeps.
// Context errors end the loop immediately and are returned unwrapped. After
// the last failed attempt Do returns *ExhaustedError carrying the final error.
func Do[T any](ctx context.Context, r *Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if isContextErr(ctx, err) {
			return zero, err
		}
		lastErr = err

		if attempt == r.maxAttempts-1 {
			break
		}

		delay := r.Backoff(attempt)
		r.logger.Warnf("retrying %s after %.1fs (attempt %d/%d): %v",
			op, delay.Seconds(), attempt+1, r.maxAttempts, err)

		if err := r.Sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Op: op, Attempts: r.maxAttempts, Err: lastErr}
}

// IsExhausted reports whether err is (or wraps) an ExhaustedError.
func IsExhausted(err error) bool {
	var e *ExhaustedError
	return errors.As(err, &e)
}

func isContextErr(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
