// Package resilience provides the fixed-delay retry used around health
// check cycles.
//
// A Retry calls an operation up to MaxAttempts times, waiting Delay between
// attempts. Intermediate failures are dropped; the failure of the final
// attempt is returned to the caller unchanged.
//
//	r := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts: 5,
//	    Delay:       2500 * time.Millisecond,
//	})
//
//	status, err := resilience.Do(ctx, r, func(ctx context.Context) (Status, error) {
//	    return runChecks(ctx)
//	})
//
// Wrap returns the decorated operation instead of running it, for callers
// that invoke it repeatedly.
package resilience
