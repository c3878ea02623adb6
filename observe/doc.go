// Package observe provides observability primitives for health check runs.
//
// It is a pure instrumentation library: no scheduling, no transport, no
// exporter setup. Spans and metric instruments are created from whatever
// OpenTelemetry providers the host installed (the otel globals by default),
// so the host decides where telemetry goes.
//
// # Logging
//
// Logger is a minimal structured logging interface. NewLogger returns a JSON
// line logger; WithCheck scopes a logger to one check:
//
//	logger := observe.NewLogger("info")
//	logger.WithCheck(observe.CheckMeta{Name: "db:ping"}).
//	    Info(ctx, "check finished", observe.Field{Key: "result", Value: "green"})
//
// # Middleware
//
// Middleware wraps a check function with a span, run/failure/duration
// metrics and a debug log line:
//
//	obs, _ := observe.NewObserver(observe.Config{ServiceName: "healthcheck"})
//	mw, _ := observe.MiddlewareFromObserver(obs)
//	run := mw.Wrap(observe.CheckMeta{Name: "db:ping"}, fn)
package observe
