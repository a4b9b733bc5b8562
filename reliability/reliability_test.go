package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/skillmesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Policy = PassThrough{}
	_ Policy = (*Backoff)(nil)
	_ Policy = (*RateLimited)(nil)
)

func noSleep(b *Backoff) *Backoff {
	b.sleep = func(context.Context, time.Duration) error { return nil }
	return b
}

func TestPassThrough_SingleAttempt(t *testing.T) {
	calls := 0
	err := PassThrough{}.Execute(context.Background(), func(context.Context) error {
		calls++
		return model.NewError(model.CodeThrottled, "slow down", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, model.CodeThrottled, model.CodeOf(err))
}

func TestBackoff_RetriesTransient(t *testing.T) {
	b := noSleep(NewBackoff(func(o *BackoffOptions) { o.MaxAttempts = 4 }))

	calls := 0
	err := b.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return model.NewError(model.CodeServiceUnavailable, "down", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoff_SurfacesLastError(t *testing.T) {
	b := noSleep(NewBackoff(func(o *BackoffOptions) { o.MaxAttempts = 2 }))

	calls := 0
	err := b.Execute(context.Background(), func(context.Context) error {
		calls++
		return model.NewError(model.CodeThrottled, "slow down", nil)
	})

	assert.Equal(t, 2, calls)
	assert.Equal(t, model.CodeThrottled, model.CodeOf(err))
}

func TestBackoff_DoesNotRetryPermanent(t *testing.T) {
	b := noSleep(NewBackoff())

	calls := 0
	err := b.Execute(context.Background(), func(context.Context) error {
		calls++
		return model.NewError(model.CodeUnauthorized, "bad key", nil)
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, model.CodeUnauthorized, model.CodeOf(err))
}

func TestBackoff_CanceledDuringWait(t *testing.T) {
	b := NewBackoff(func(o *BackoffOptions) {
		o.InitialDelay = time.Hour
		o.Jitter = 0
	})

	ctx, cancel := context.WithCancel(context.Background())
	backendErr := model.NewError(model.CodeThrottled, "slow down", nil)

	calls := 0
	err := b.Execute(ctx, func(context.Context) error {
		calls++
		cancel()
		return backendErr
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, backendErr)
}

func TestBackoff_DelayCapped(t *testing.T) {
	b := NewBackoff(func(o *BackoffOptions) {
		o.InitialDelay = time.Second
		o.MaxDelay = 3 * time.Second
		o.Jitter = 0
	})

	assert.Equal(t, time.Second, b.delay(1))
	assert.Equal(t, 2*time.Second, b.delay(2))
	assert.Equal(t, 3*time.Second, b.delay(5))
}

func TestRateLimited_WrapsPolicy(t *testing.T) {
	p := NewRateLimited(1000, 1, noSleep(NewBackoff()))

	calls := 0
	err := p.Execute(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return model.NewError(model.CodeThrottled, "slow down", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRateLimited_CanceledContext(t *testing.T) {
	p := NewRateLimited(0.0001, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Execute(ctx, func(context.Context) error { return nil })
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestOrPassThrough(t *testing.T) {
	assert.Equal(t, PassThrough{}, OrPassThrough(nil))
	b := NewBackoff()
	assert.Same(t, b, OrPassThrough(b))
}
