package resilience

import (
	"context"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// Delay is the fixed wait between attempts. Zero retries immediately.
	Delay time.Duration

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-invokes a failing operation a bounded number of times with a
// fixed delay between attempts.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Delay < 0 {
		config.Delay = 0
	}
	return &Retry{config: config}
}

// Execute runs op until it succeeds or MaxAttempts is reached.
//
// The error of the last attempt is returned unchanged. If ctx is done while
// waiting between attempts, ctx.Err() is returned.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := Do(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

// Wrap returns op decorated with r.
func Wrap[T any](r *Retry, op func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Do(ctx, r, op)
	}
}

// Do runs op with r and returns the value of the first successful attempt.
func Do[T any](ctx context.Context, r *Retry, op func(context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		if attempt >= r.config.MaxAttempts {
			return zero, err
		}

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, r.config.Delay)
		}

		if err := sleep(ctx, r.config.Delay); err != nil {
			return zero, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
