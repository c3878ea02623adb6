// Package schedule provides a fire-and-forget periodic runner.
//
// An Interval calls its function once per period on a fresh goroutine. It
// does not wait for one invocation to return before firing the next, and it
// never retries. Errors and panics from an invocation are handed to the
// ErrorHandler (stderr by default) so the loop keeps ticking.
//
//	iv := schedule.NewInterval(func(ctx context.Context) error {
//	    return refresh(ctx)
//	}, 15*time.Minute, schedule.WithName("health"))
//	iv.Start()
//	defer iv.Stop()
package schedule
