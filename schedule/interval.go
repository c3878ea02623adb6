package schedule

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"time"
)

// ErrPanicked wraps a value recovered from a panicking tick.
var ErrPanicked = errors.New("schedule: tick panicked")

// Status reflects the most recent invocation of an Interval's function.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusStarted    Status = "started"
	StatusFinished   Status = "finished"
)

// ErrorHandler receives errors and recovered panics from ticks.
type ErrorHandler func(ctx context.Context, name string, err error)

// Option configures an Interval.
type Option func(*Interval)

// WithName sets a name used when reporting tick failures.
func WithName(name string) Option {
	return func(i *Interval) { i.name = name }
}

// WithErrorHandler sets the handler for tick failures. The default writes a
// line to stderr.
func WithErrorHandler(h ErrorHandler) Option {
	return func(i *Interval) {
		if h != nil {
			i.onError = h
		}
	}
}

// Interval invokes a function on a fixed period until stopped.
//
// Every tick runs on its own goroutine, so a slow invocation does not delay
// the next tick and invocations may overlap. Callers that need mutual
// exclusion provide it inside fn.
type Interval struct {
	fn      func(ctx context.Context) error
	period  time.Duration
	name    string
	onError ErrorHandler

	mu     sync.Mutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}
}

// NewInterval creates a stopped runner for fn with the given period.
func NewInterval(fn func(ctx context.Context) error, period time.Duration, opts ...Option) *Interval {
	i := &Interval{
		fn:      fn,
		period:  period,
		onError: reportToStderr,
		status:  StatusNotStarted,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

// Start begins ticking. The first invocation happens one period after Start.
// Calling Start on a running Interval has no effect.
func (i *Interval) Start() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	i.cancel = cancel
	i.done = make(chan struct{})

	go i.loop(ctx, i.done)
}

// Stop cancels future invocations and the context of in-flight ones. It
// returns once no further tick can fire.
func (i *Interval) Stop() {
	i.mu.Lock()
	cancel, done := i.cancel, i.done
	i.cancel, i.done = nil, nil
	i.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Status returns the state of the most recent invocation.
func (i *Interval) Status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status
}

func (i *Interval) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(i.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			go i.tick(ctx)
		}
	}
}

func (i *Interval) tick(ctx context.Context) {
	i.setStatus(StatusStarted)
	defer i.setStatus(StatusFinished)

	defer func() {
		if p := recover(); p != nil {
			i.report(ctx, fmt.Errorf("%w: %v\n%s", ErrPanicked, p, debug.Stack()))
		}
	}()

	if err := i.fn(ctx); err != nil {
		i.report(ctx, err)
	}
}

func (i *Interval) setStatus(s Status) {
	i.mu.Lock()
	i.status = s
	i.mu.Unlock()
}

func (i *Interval) report(ctx context.Context, err error) {
	defer func() {
		if p := recover(); p != nil {
			reportToStderr(ctx, i.name, fmt.Errorf("schedule: error handler panicked: %v", p))
		}
	}()
	i.onError(ctx, i.name, err)
}

var stderrMu sync.Mutex

func reportToStderr(_ context.Context, name string, err error) {
	var buf bytes.Buffer
	buf.WriteString("schedule: error")
	if name != "" {
		fmt.Fprintf(&buf, " name=%q", name)
	}
	fmt.Fprintf(&buf, " err=%v\n", err)

	stderrMu.Lock()
	_, _ = os.Stderr.Write(buf.Bytes())
	stderrMu.Unlock()
}
