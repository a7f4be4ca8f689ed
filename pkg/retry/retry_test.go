package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastConfig() Config {
	return Config{
		Enabled:      true,
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		return errors.New("always")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max attempts")
	assert.Equal(t, 4, attempts) // initial try + 3 retries
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	permanent := errors.New("fatal")
	cfg := fastConfig()
	cfg.Permanent = []error{permanent}

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return permanent
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestDo_DisabledRunsOnce(t *testing.T) {
	cfg := fastConfig()
	cfg.Enabled = false

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return errors.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoWithResult_ReturnsValue(t *testing.T) {
	got, err := DoWithResult(context.Background(), fastConfig(), func() (int, error) {
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastConfig(), func() error {
		return errors.New("never reached after cancel")
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
