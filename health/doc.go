// Package health runs registered checks, aggregates their results into one
// status and gates readiness on the first successful cycle.
//
// # Core Concepts
//
// A check is a task.Definition registered on a HealthCheck. Setup selects the
// checks that run through regular expressions (see FilterByRegex), Start runs
// them once and waits until every critical check is green, then re-runs them
// every Interval. Each run, called a cycle, is retried up to MaxRetries times
// with RetriesDelay between attempts.
//
// The outcome of every cycle is published as a Status. Overall reduces the
// checks of a Status to one color: red if a finished critical check failed,
// yellow if only non-critical checks failed, green otherwise.
//
// # Basic Usage
//
//	hc, _ := health.New(health.WithLogger(observe.NewLogger("info")))
//	_ = hc.Register(health.TCPCheck(health.TCPCheckConfig{
//	    Name:     "db:tcp",
//	    Address:  "db:5432",
//	    Critical: true,
//	}))
//
//	_ = hc.Setup(health.DefaultConfig())
//	if err := hc.Start(ctx, nil); err != nil {
//	    return err
//	}
//	defer hc.Stop()
//
// Explicit runs go through RunNamed. Concurrent calls asking for the same
// checks share one cycle.
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, hc, "/api/healthcheck")
//
// registers /healthz, /readyz and, under the prefix, /config and /internal.
package health
