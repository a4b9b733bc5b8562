// Package reliability provides retry policies wrapped around backend calls.
//
// A Policy decides how often a backend request is attempted. The default is
// PassThrough, a single attempt. Backoff retries transient backend failures
// (throttled, service-unavailable, request-timeout) with exponential delays,
// and RateLimited gates another policy through a token bucket.
package reliability

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/hupe1980/skillmesh/logging"
	"github.com/hupe1980/skillmesh/model"
	"golang.org/x/time/rate"
)

// Policy runs an operation, possibly more than once. Execute returns the
// error of the last attempt.
type Policy interface {
	Execute(ctx context.Context, op func(ctx context.Context) error) error
}

// PassThrough attempts the operation exactly once.
type PassThrough struct{}

// Execute implements Policy.
func (PassThrough) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return op(ctx)
}

// BackoffOptions configures a Backoff policy.
type BackoffOptions struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter in [0,1]; 0.1 spreads every delay by ±10%.
	Jitter float64
	// Retryable decides whether an error is retried. Defaults to
	// model.IsTransient.
	Retryable func(error) bool
	Logger    logging.Logger
}

// Backoff retries transient failures with exponentially growing delays.
type Backoff struct {
	opts  BackoffOptions
	sleep func(ctx context.Context, d time.Duration) error
}

// NewBackoff creates a Backoff policy.
func NewBackoff(optFns ...func(o *BackoffOptions)) *Backoff {
	opts := BackoffOptions{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Jitter:       0.1,
		Retryable:    model.IsTransient,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2
	}
	if opts.Retryable == nil {
		opts.Retryable = model.IsTransient
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	return &Backoff{opts: opts, sleep: sleepCtx}
}

// Execute implements Policy.
func (b *Backoff) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < b.opts.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := b.delay(attempt)
			b.opts.Logger.Warn("backend.retry", "attempt", attempt+1, "max_attempts", b.opts.MaxAttempts, "delay", delay, "error", lastErr.Error())
			if err := b.sleep(ctx, delay); err != nil {
				// The caller wants the backend failure, not the cancellation.
				return lastErr
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !b.opts.Retryable(err) {
			return err
		}
	}
	return lastErr
}

func (b *Backoff) delay(attempt int) time.Duration {
	d := time.Duration(float64(b.opts.InitialDelay) * math.Pow(b.opts.Multiplier, float64(attempt-1)))
	if b.opts.MaxDelay > 0 && d > b.opts.MaxDelay {
		d = b.opts.MaxDelay
	}
	if b.opts.Jitter > 0 {
		spread := float64(d) * b.opts.Jitter
		d = time.Duration(float64(d) + spread*(2*rand.Float64()-1))
		if d < 0 {
			d = 0
		}
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RateLimited waits for a token before every attempt of the wrapped policy.
type RateLimited struct {
	limiter *rate.Limiter
	next    Policy
}

// NewRateLimited allows rps attempts per second with the given burst. A nil
// next policy defaults to PassThrough.
func NewRateLimited(rps float64, burst int, next Policy) *RateLimited {
	if next == nil {
		next = PassThrough{}
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{limiter: rate.NewLimiter(rate.Limit(rps), burst), next: next}
}

// Execute implements Policy.
func (r *RateLimited) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	return r.next.Execute(ctx, func(ctx context.Context) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		return op(ctx)
	})
}

// OrPassThrough returns p, or PassThrough when p is nil.
func OrPassThrough(p Policy) Policy {
	if p == nil {
		return PassThrough{}
	}
	return p
}
