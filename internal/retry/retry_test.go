// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retry

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/snowball/pkg/types"
)

// recorder captures sleeps instead of waiting.
type recorder struct {
	delays []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestRetrier(attempts int, buf *bytes.Buffer) (*Retrier, *recorder) {
	var logger *log.Logger
	if buf != nil {
		logger = log.New(buf)
	}
	r := New(types.RetryConfig{
		MaxAttempts:    attempts,
		BaseDelay:      time.Second,
		MaxDelay:       4 * time.Second,
		JitterFraction: 0.1,
	}, logger)
	rec := &recorder{}
	r.Sleep = rec.sleep
	r.Rand = func() float64 { return 0.5 }
	return r, rec
}

// flaky fails the first n calls, then returns "ok".
func flaky(n int, calls *int) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		*calls++
		if *calls <= n {
			return "", errors.New("transient")
		}
		return "ok", nil
	}
}

func TestDo_ImmediateSuccess(t *testing.T) {
	r, rec := newTestRetrier(3, nil)
	calls := 0

	v, err := Do(context.Background(), r, "op", flaky(0, &calls))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDo_FailsThenSucceeds(t *testing.T) {
	for m := 1; m < 5; m++ {
		r, rec := newTestRetrier(5, nil)
		calls := 0

		v, err := Do(context.Background(), r, "op", flaky(m, &calls))
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, m+1, calls)
		require.Len(t, rec.delays, m, "one sleep per failure")

		for i := 1; i < len(rec.delays); i++ {
			assert.GreaterOrEqual(t, rec.delays[i], rec.delays[i-1], "delays must not decrease")
		}
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	r, rec := newTestRetrier(3, nil)
	calls := 0

	_, err := Do(context.Background(), r, "fetch related 42", flaky(100, &calls))
	require.Error(t, err)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, "fetch related 42", ex.Op)
	assert.Equal(t, 3, ex.Attempts)
	assert.EqualError(t, ex.Err, "transient")
	assert.True(t, IsExhausted(err))

	assert.Equal(t, 3, calls, "never attempts an extra call")
	assert.Len(t, rec.delays, 2)
}

func TestDo_ContextCancelledIsNotRetried(t *testing.T) {
	r, rec := newTestRetrier(3, nil)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Do(ctx, r, "op", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsExhausted(err))
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestDo_CancelDuringSleep(t *testing.T) {
	r := New(types.RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Do(ctx, r, "op", func(context.Context) (int, error) {
		return 0, errors.New("boom")
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_LogsEachRetry(t *testing.T) {
	var buf bytes.Buffer
	r, _ := newTestRetrier(3, &buf)
	r.Rand = func() float64 { return 0 }
	calls := 0

	_, err := Do(context.Background(), r, "bib fetch for 7", flaky(2, &calls))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "retrying bib fetch for 7 after 1.0s (attempt 1/3)")
	assert.Contains(t, out, "retrying bib fetch for 7 after 2.0s (attempt 2/3)")
}

func TestBackoff(t *testing.T) {
	r, _ := newTestRetrier(10, nil)
	r.Rand = func() float64 { return 0 }

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 4 * time.Second},
		{60, 4 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Backoff(tt.attempt), "attempt %d", tt.attempt)
	}

	r.Rand = func() float64 { return 0.999 }
	got := r.Backoff(0)
	assert.Greater(t, got, time.Second)
	assert.LessOrEqual(t, got, 1100*time.Millisecond)
}

func TestNew_Defaults(t *testing.T) {
	r := New(types.RetryConfig{}, nil)
	assert.Equal(t, defaultMaxAttempts, r.MaxAttempts())
	assert.Equal(t, defaultBaseDelay, r.baseDelay)
	assert.Equal(t, defaultMaxDelay, r.maxDelay)
	assert.InDelta(t, defaultJitterFraction, r.jitter, 1e-9)

	r = New(types.RetryConfig{JitterFraction: -1}, nil)
	assert.Zero(t, r.jitter)
}
