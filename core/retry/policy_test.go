package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Policy{MaxAttempts: 3}.Do(context.Background(), func(int) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	var seen []int
	notified := 0
	p := Policy{MaxAttempts: 3, Delay: time.Millisecond, Notify: func(error, time.Duration) { notified++ }}
	err := p.Do(context.Background(), func(attempt int) error {
		seen = append(seen, attempt)
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, 2, notified)
}

func TestDoRecovers(t *testing.T) {
	err := Policy{MaxAttempts: 3}.Do(context.Background(), func(attempt int) error {
		if attempt < 3 {
			return errBoom
		}
		return nil
	})
	assert.NoError(t, err)
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Policy{}.Do(context.Background(), func(int) error {
		calls++
		return errBoom
	})
	assert.Equal(t, 1, calls)
}

func TestDoPermanentStops(t *testing.T) {
	calls := 0
	err := Policy{MaxAttempts: 5}.Do(context.Background(), func(int) error {
		calls++
		return Permanent(errBoom)
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, calls)
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Policy{MaxAttempts: 10, Delay: 10 * time.Millisecond}.Do(ctx, func(int) error {
		calls++
		cancel()
		return errBoom
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
