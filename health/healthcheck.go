package health

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/healthcheck/observe"
	"github.com/jonwraymond/healthcheck/resilience"
	"github.com/jonwraymond/healthcheck/schedule"
	"github.com/jonwraymond/healthcheck/task"
)

// State is the lifecycle state of a HealthCheck.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateConfigured    State = "configured"
	StateDisabled      State = "disabled"
	StateAwaiting      State = "awaiting"
	StateRunning       State = "running"
	StateStopped       State = "stopped"
)

// Option configures a HealthCheck.
type Option func(*options)

type options struct {
	logger   observe.Logger
	observer observe.Observer
}

// WithLogger sets the logger. It takes precedence over the observer's logger.
func WithLogger(logger observe.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver instruments every registered check with the observer's
// tracer, meter and logger.
func WithObserver(obs observe.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// HealthCheck runs registered checks on a schedule, aggregates their
// outcome and publishes it to subscribers.
//
// Lifecycle: Register checks, Setup with a Config, Start once, Stop once.
// It is safe for concurrent use.
type HealthCheck struct {
	logger   observe.Logger
	registry *task.Registry
	status   *Broadcaster[Status]
	flight   singleflight.Group

	mu       sync.RWMutex
	state    State
	cfg      Config
	retry    *resilience.Retry
	services any
	interval *schedule.Interval
}

// New creates a HealthCheck in the uninitialized state.
func New(opts ...Option) (*HealthCheck, error) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	logger := o.logger
	if logger == nil && o.observer != nil {
		logger = o.observer.Logger()
	}
	if logger == nil {
		logger = observe.NopLogger()
	}

	regOpts := []task.RegistryOption{task.WithLogger(logger)}
	if o.observer != nil {
		mw, err := observe.MiddlewareFromObserver(o.observer)
		if err != nil {
			return nil, fmt.Errorf("health: instrument checks: %w", err)
		}
		regOpts = append(regOpts, task.WithMiddleware(mw))
	}

	return &HealthCheck{
		logger:   logger,
		registry: task.NewRegistry(regOpts...),
		status:   NewBroadcaster(initialStatus()),
		state:    StateUninitialized,
	}, nil
}

// Register adds a check.
func (h *HealthCheck) Register(def task.Definition) error {
	return h.registry.Register(def)
}

// Get returns the check registered under name.
func (h *HealthCheck) Get(name string) (*task.Task, error) {
	return h.registry.Get(name)
}

// GetAll returns every registered check in registration order.
func (h *HealthCheck) GetAll() []*task.Task {
	return h.registry.GetAll()
}

// Setup stores cfg. A config with Enabled false moves the HealthCheck to the
// disabled state; Start then only marks checks.
//
// Setup only rejects values the scheduler cannot run with. Range limits are
// enforced by Config.Validate when a config is loaded.
func (h *HealthCheck) Setup(cfg Config) error {
	switch {
	case cfg.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	case cfg.MaxRetries < 1:
		return fmt.Errorf("%w: max_retries must be at least 1", ErrInvalidConfig)
	case cfg.RetriesDelay < 0:
		return fmt.Errorf("%w: retries_delay must not be negative", ErrInvalidConfig)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateUninitialized, StateConfigured, StateDisabled:
	default:
		return fmt.Errorf("%w: setup in state %s", ErrAlreadyStarted, h.state)
	}

	h.cfg = cfg.clone()
	h.retry = resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		Delay:       cfg.RetriesDelay,
	})
	if cfg.Enabled {
		h.state = StateConfigured
	} else {
		h.state = StateDisabled
	}
	return nil
}

// Start marks the checks matching the configured patterns as enabled, runs
// the first cycle and blocks until a cycle succeeds, then schedules further
// cycles every Interval.
//
// Start returns nil without running anything when the config is disabled or
// no check is enabled. If ctx is done before a cycle succeeds, Start returns
// ctx.Err(), the first cycle keeps running in the background and Start may
// be called again.
func (h *HealthCheck) Start(ctx context.Context, services any) error {
	h.mu.Lock()
	switch h.state {
	case StateUninitialized:
		h.mu.Unlock()
		return ErrNotConfigured
	case StateConfigured, StateDisabled:
	case StateStopped:
		h.mu.Unlock()
		return ErrStopped
	default:
		h.mu.Unlock()
		return fmt.Errorf("%w: start in state %s", ErrAlreadyStarted, h.state)
	}

	h.services = services
	enabled := h.markEnabledLocked()

	if h.state == StateDisabled {
		h.mu.Unlock()
		h.logger.Info(ctx, "Disabled. Skip start")
		return nil
	}
	if len(enabled) == 0 {
		h.state = StateDisabled
		h.cfg.Enabled = false
		h.mu.Unlock()
		h.logger.Info(ctx, "Disabled health check due to no enabled checks.")
		return nil
	}
	h.state = StateAwaiting
	interval := h.cfg.Interval
	h.mu.Unlock()

	h.logger.Info(ctx, fmt.Sprintf("Enabled checks [%d]: [%s]", len(enabled), strings.Join(enabled, ",")))

	if err := h.awaitFirstSuccess(ctx); err != nil {
		h.mu.Lock()
		if h.state == StateAwaiting {
			// Let Start be called again.
			h.state = StateConfigured
		}
		h.mu.Unlock()
		return err
	}

	h.logger.Debug(ctx, "Setting scheduled checks")
	iv := schedule.NewInterval(h.scheduledCycle, interval,
		schedule.WithName("healthcheck"),
		schedule.WithErrorHandler(func(ctx context.Context, _ string, err error) {
			h.logger.Error(ctx, "Error in scheduled check: "+err.Error())
		}),
	)

	h.mu.Lock()
	if h.state != StateAwaiting {
		// Stopped while waiting.
		h.mu.Unlock()
		return ErrStopped
	}
	h.interval = iv
	h.state = StateRunning
	iv.Start()
	h.mu.Unlock()

	h.logger.Info(ctx, fmt.Sprintf("Set scheduled checks each %dms", interval.Milliseconds()))
	return nil
}

func (h *HealthCheck) markEnabledLocked() []string {
	enabled := FilterByRegex(h.registry.Names(), h.cfg.ChecksEnabled)
	set := make(map[string]struct{}, len(enabled))
	for _, name := range enabled {
		set[name] = struct{}{}
	}
	for _, t := range h.registry.GetAll() {
		_, ok := set[t.Name()]
		t.SetEnabled(ok)
	}
	return enabled
}

func (h *HealthCheck) awaitFirstSuccess(ctx context.Context) error {
	h.logger.Debug(ctx, "Waiting until all checks are ok...")

	go func() {
		if _, err := h.RunNamed(context.Background(), nil); err != nil {
			h.logger.Debug(ctx, "Initial check failed: "+err.Error())
		}
	}()

	if _, err := h.status.WaitFor(ctx, func(s Status) bool { return s.OK }); err != nil {
		return err
	}

	h.logger.Info(ctx, "Checks are ok")
	return nil
}

func (h *HealthCheck) scheduledCycle(ctx context.Context) error {
	h.logger.Debug(ctx, "Running scheduled check")
	defer h.logger.Debug(ctx, "Scheduled check finished")

	_, err := h.runCycle(ctx, nil)
	return err
}

// Stop cancels scheduled cycles and releases all subscribers.
func (h *HealthCheck) Stop() {
	h.mu.Lock()
	if h.state == StateStopped {
		h.mu.Unlock()
		return
	}
	h.state = StateStopped
	iv := h.interval
	h.interval = nil
	h.mu.Unlock()

	ctx := context.Background()
	h.logger.Debug(ctx, "Stop starts")
	if iv != nil {
		iv.Stop()
	}
	h.status.Close()
	h.logger.Debug(ctx, "Stop finished")
}

// RunNamed runs a cycle over names, or over the enabled checks when names is
// nil, and returns its published outcome.
//
// Concurrent calls for the same set of names share one cycle. Cancelling
// ctx stops the wait, not the shared cycle.
func (h *HealthCheck) RunNamed(ctx context.Context, names []string) (Status, error) {
	h.mu.RLock()
	state := h.state
	h.mu.RUnlock()

	switch state {
	case StateUninitialized:
		return Status{}, ErrNotConfigured
	case StateStopped:
		return Status{}, ErrStopped
	}

	ch := h.flight.DoChan(runKey(names), func() (any, error) {
		return h.runCycle(context.WithoutCancel(ctx), names)
	})

	select {
	case <-ctx.Done():
		return Status{}, ctx.Err()
	case res := <-ch:
		st, _ := res.Val.(Status)
		return st, res.Err
	}
}

// runCycle runs the target checks under the retry policy and publishes the
// final outcome.
func (h *HealthCheck) runCycle(ctx context.Context, names []string) (Status, error) {
	h.mu.RLock()
	retry := h.retry
	services := h.services
	patterns := h.cfg.ChecksEnabled
	h.mu.RUnlock()

	if retry == nil {
		return Status{}, ErrNotConfigured
	}

	target := names
	if target == nil {
		target = FilterByRegex(h.registry.Names(), patterns)
	}
	env := task.Env{Services: services, Scope: task.ScopeInternal}

	st, err := resilience.Do(ctx, retry, func(ctx context.Context) (Status, error) {
		return h.runOnce(ctx, env, target)
	})
	if err != nil {
		h.logger.Error(ctx, "Check cycle failed: "+err.Error())
		st = Status{
			OK:     false,
			Result: task.ResultRed,
			Checks: []task.Info{},
			Error:  err.Error(),
		}
		h.status.Publish(st)
		return st, err
	}

	h.status.Publish(st)
	return st, nil
}

func (h *HealthCheck) runOnce(ctx context.Context, env task.Env, target []string) (Status, error) {
	h.logger.Debug(ctx, "Starting")

	if h.registry.Len() == 0 {
		h.logger.Debug(ctx, "No checks. Skipping")
		return Status{OK: true, Result: task.ResultGreen, Checks: []task.Info{}}, nil
	}

	h.logger.Debug(ctx, "Running checks")
	checks := h.registry.Run(ctx, env, target)
	if checks == nil {
		checks = []task.Info{}
	}
	sortByName(checks)

	if failed := failedChecks(checks); len(failed) > 0 {
		return Status{}, &CycleError{Failed: failed, Total: len(checks)}
	}

	h.logger.Debug(ctx, fmt.Sprintf("ok: [true]. checks [%d]", len(checks)))
	return Status{OK: true, Result: Overall(checks), Checks: checks}, nil
}

// GetChecksInfo returns snapshots of the named checks, or of every check
// when names is nil.
func (h *HealthCheck) GetChecksInfo(names []string) ([]task.Info, error) {
	if names == nil {
		tasks := h.registry.GetAll()
		infos := make([]task.Info, len(tasks))
		for i, t := range tasks {
			infos[i] = t.Info()
		}
		return infos, nil
	}

	infos := make([]task.Info, 0, len(names))
	for _, name := range names {
		info, err := h.GetCheckInfo(name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// GetCheckInfo returns a snapshot of the named check.
func (h *HealthCheck) GetCheckInfo(name string) (task.Info, error) {
	t, err := h.registry.Get(name)
	if err != nil {
		return task.Info{}, err
	}
	return t.Info(), nil
}

// SetCheckResult overrides the result of a finished check.
func (h *HealthCheck) SetCheckResult(name string, result task.Result) error {
	t, err := h.registry.Get(name)
	if err != nil {
		return err
	}
	return t.SetResult(result)
}

// ValidateNames returns an *InvalidNamesError listing the names that are not
// registered.
func (h *HealthCheck) ValidateNames(names []string) error {
	var invalid []string
	for _, name := range names {
		if _, err := h.registry.Get(name); err != nil {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return &InvalidNamesError{Names: invalid}
	}
	return nil
}

// GetConfig returns the active configuration. Enabled reports false once
// Start found no enabled checks.
func (h *HealthCheck) GetConfig() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg.clone()
}

// Subscribe calls fn with the current status and every status published
// after it, until the subscription is cancelled or the HealthCheck stops.
func (h *HealthCheck) Subscribe(fn func(Status)) *Subscription {
	return h.status.Subscribe(fn)
}

// Current returns the latest published status.
func (h *HealthCheck) Current() Status {
	return h.status.Current()
}

// State returns the lifecycle state.
func (h *HealthCheck) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Ready reports whether start-up is no longer gated: the first cycle
// succeeded, or the health check is disabled.
func (h *HealthCheck) Ready() bool {
	switch h.State() {
	case StateRunning, StateDisabled:
		return true
	default:
		return false
	}
}
