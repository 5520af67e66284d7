package browser

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ibeckermayer/dsltask/internal/config"
)

// ErrWaitTimeout is returned by WaitUntil when the condition never held.
var ErrWaitTimeout = errors.New("condition not met before timeout")

var errPending = errors.New("condition pending")

// WaitOptions bounds a condition-wait.
type WaitOptions struct {
	Timeout     time.Duration
	Interval    time.Duration
	MaxInterval time.Duration
}

// Condition reports whether the awaited page state has been reached. An error
// aborts the wait.
type Condition func(ctx context.Context) (bool, error)

// WaitUntil polls cond until it holds, it fails, ctx ends, or opts.Timeout
// elapses. The poll interval starts at opts.Interval and grows up to
// opts.MaxInterval. cond is always evaluated at least once.
func WaitUntil(ctx context.Context, opts WaitOptions, cond Condition) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.Interval
	b.MaxInterval = opts.MaxInterval
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.Multiplier = 1.5
	b.RandomizationFactor = 0.2

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		ok, err := cond(ctx)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !ok {
			return struct{}{}, errPending
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(opts.Timeout),
	)

	if errors.Is(err, errPending) {
		return ErrWaitTimeout
	}
	return err
}

// WaitFor builds wait options bounded by timeout using the configured poll intervals.
func WaitFor(timeout time.Duration, w config.WaitsConfig) WaitOptions {
	return WaitOptions{
		Timeout:     timeout,
		Interval:    w.PollInterval.Duration,
		MaxInterval: w.MaxPollInterval.Duration,
	}
}
