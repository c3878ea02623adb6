package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/healthcheck/observe"
)

// Status is the run state of a task.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusFinished   Status = "finished"
)

// Result is the outcome color of a task run.
type Result string

const (
	// ResultGray means no finished run yet, or a run in progress.
	ResultGray Result = "gray"
	// ResultGreen means the last run succeeded.
	ResultGreen Result = "green"
	// ResultYellow means the last run of a non-critical task failed.
	ResultYellow Result = "yellow"
	// ResultRed means the last run of a critical task failed.
	ResultRed Result = "red"
)

// Valid reports whether r is one of the known result colors.
func (r Result) Valid() bool {
	switch r {
	case ResultGray, ResultGreen, ResultYellow, ResultRed:
		return true
	default:
		return false
	}
}

// Run scopes.
const (
	ScopeInternal = "internal"
	ScopeUser     = "user"
)

// Env is handed to every task function.
type Env struct {
	// Services are the host handles given to the orchestrator at start.
	Services any

	// Scope tells who triggered the run (ScopeInternal or ScopeUser).
	Scope string

	// Logger is scoped to the running task.
	Logger observe.Logger
}

// Func is the work of a task. The returned value is kept as the task's Data
// on success.
type Func func(ctx context.Context, env Env) (any, error)

// Definition describes a task to register.
type Definition struct {
	Name string
	Run  Func

	// Order groups tasks: lower orders run first, equal orders run
	// concurrently. Nil runs in the last group.
	Order *int

	// Critical turns a failure red instead of yellow.
	Critical bool
}

// OrderAt returns a pointer to n for use as Definition.Order.
func OrderAt(n int) *int {
	return &n
}

// Info is an immutable snapshot of a task.
type Info struct {
	Name       string     `json:"name"`
	Status     Status     `json:"status"`
	Result     Result     `json:"result"`
	Data       any        `json:"data"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
	Duration   *float64   `json:"duration"` // seconds
	Error      string     `json:"error,omitempty"`
	Enabled    bool       `json:"enabled"`
	Critical   bool       `json:"critical"`
}

// Task is a registered check with its mutable run state.
//
// It is safe for concurrent use.
type Task struct {
	name     string
	order    *int
	critical bool
	run      Func
	now      func() time.Time

	mu         sync.Mutex
	status     Status
	result     Result
	data       any
	err        string
	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
	duration   float64
	ran        bool
	enabled    bool
}

// New creates a task from def.
func New(def Definition) *Task {
	t := &Task{
		name:     def.Name,
		critical: def.Critical,
		run:      def.Run,
		now:      nowMillis,
		status:   StatusNotStarted,
		result:   ResultGray,
	}
	if def.Order != nil {
		o := *def.Order
		t.order = &o
	}
	t.createdAt = t.now()
	return t
}

func nowMillis() time.Time {
	return time.Now().Truncate(time.Millisecond)
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

// Order returns the task order and whether one was set.
func (t *Task) Order() (int, bool) {
	if t.order == nil {
		return 0, false
	}
	return *t.order, true
}

// Critical reports whether a failure of this task is critical.
func (t *Task) Critical() bool {
	return t.critical
}

// Enabled reports whether the task matched the enable filter at start.
func (t *Task) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// SetEnabled marks the task as enabled or disabled.
func (t *Task) SetEnabled(enabled bool) {
	t.mu.Lock()
	t.enabled = enabled
	t.mu.Unlock()
}

// SetResult overrides the result of the last finished run.
func (t *Task) SetResult(r Result) error {
	if !r.Valid() {
		return fmt.Errorf("task: invalid result %q", r)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusFinished {
		return fmt.Errorf("%w: %s", ErrNotFinished, t.name)
	}
	t.result = r
	return nil
}

// Run executes the task function and records its outcome.
//
// It returns ErrAlreadyRunning, without touching the state of the run in
// progress, when the task is already running. Otherwise the returned Info
// reflects the finished run and the error is the task function's own error.
func (t *Task) Run(ctx context.Context, env Env) (Info, error) {
	t.mu.Lock()
	if t.status == StatusRunning {
		t.mu.Unlock()
		return Info{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, t.name)
	}
	t.status = StatusRunning
	t.result = ResultGray
	t.data = nil
	t.err = ""
	t.startedAt = t.now()
	t.finishedAt = time.Time{}
	t.ran = false
	t.mu.Unlock()

	data, err := t.call(ctx, env)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.data = nil
		t.err = err.Error()
		if t.critical {
			t.result = ResultRed
		} else {
			t.result = ResultYellow
		}
	} else {
		t.data = data
		t.result = ResultGreen
	}

	t.status = StatusFinished
	t.finishedAt = t.now()
	t.duration = float64(t.finishedAt.Sub(t.startedAt).Milliseconds()) / 1000
	t.ran = true

	return t.infoLocked(), err
}

func (t *Task) call(ctx context.Context, env Env) (data any, err error) {
	defer func() {
		if p := recover(); p != nil {
			data = nil
			err = fmt.Errorf("%w: %v", ErrPanicked, p)
		}
	}()
	return t.run(ctx, env)
}

// Info returns a snapshot of the task.
func (t *Task) Info() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.infoLocked()
}

func (t *Task) infoLocked() Info {
	info := Info{
		Name:      t.name,
		Status:    t.status,
		Result:    t.result,
		Data:      t.data,
		CreatedAt: t.createdAt,
		Error:     t.err,
		Enabled:   t.enabled,
		Critical:  t.critical,
	}
	if !t.startedAt.IsZero() {
		started := t.startedAt
		info.StartedAt = &started
	}
	if t.ran {
		finished := t.finishedAt
		duration := t.duration
		info.FinishedAt = &finished
		info.Duration = &duration
	}
	return info
}
