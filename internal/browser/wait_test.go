package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastWait = WaitOptions{
	Timeout:     time.Second,
	Interval:    time.Millisecond,
	MaxInterval: 5 * time.Millisecond,
}

func TestWaitUntil_ImmediatelyTrue(t *testing.T) {
	calls := 0
	err := WaitUntil(context.Background(), fastWait, func(ctx context.Context) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWaitUntil_BecomesTrue(t *testing.T) {
	calls := 0
	err := WaitUntil(context.Background(), fastWait, func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWaitUntil_Timeout(t *testing.T) {
	opts := WaitOptions{Timeout: 30 * time.Millisecond, Interval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

	calls := 0
	start := time.Now()
	err := WaitUntil(context.Background(), opts, func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	})
	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.GreaterOrEqual(t, calls, 1)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitUntil_ConditionError(t *testing.T) {
	boom := errors.New("tab crashed")
	calls := 0
	err := WaitUntil(context.Background(), fastWait, func(ctx context.Context) (bool, error) {
		calls++
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWaitUntil_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := WaitOptions{Timeout: time.Minute, Interval: 10 * time.Millisecond, MaxInterval: 10 * time.Millisecond}

	err := WaitUntil(ctx, opts, func(ctx context.Context) (bool, error) {
		cancel()
		return false, nil
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWaitTimeout)
}
