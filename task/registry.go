package task

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/healthcheck/observe"
)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for registry events and handed to tasks.
func WithLogger(logger observe.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMiddleware instruments every task registered afterwards.
func WithMiddleware(mw *observe.Middleware) RegistryOption {
	return func(r *Registry) {
		r.mw = mw
	}
}

// Registry owns a set of uniquely named tasks and runs them in ordered groups.
//
// It is safe for concurrent use.
type Registry struct {
	logger observe.Logger
	mw     *observe.Middleware

	mu    sync.RWMutex
	items map[string]*Task
	order []string // Maintains registration order
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger: observe.NopLogger(),
		items:  make(map[string]*Task),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds a task built from def.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" || def.Run == nil {
		return fmt.Errorf("%w: name and run function are required", ErrInvalidDefinition)
	}

	ctx := context.Background()
	r.logger.Debug(ctx, "registering task", observe.Field{Key: "task", Value: def.Name})

	if r.mw != nil {
		def.Run = r.instrument(def)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[def.Name]; exists {
		return fmt.Errorf("%w: [%s] was already registered", ErrDuplicateName, def.Name)
	}

	r.items[def.Name] = New(def)
	r.order = append(r.order, def.Name)
	return nil
}

func (r *Registry) instrument(def Definition) Func {
	inner := def.Run
	mw := r.mw
	return func(ctx context.Context, env Env) (any, error) {
		meta := observe.CheckMeta{Name: def.Name, Critical: def.Critical, Scope: env.Scope}
		return mw.Wrap(meta, func(ctx context.Context) (any, error) {
			return inner(ctx, env)
		})(ctx)
	}
}

// Get returns the task registered under name.
func (r *Registry) Get(name string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.items[name]
	if !ok {
		return nil, fmt.Errorf("%w: [%s]", ErrNotFound, name)
	}
	return t, nil
}

// GetAll returns all tasks in registration order.
func (r *Registry) GetAll() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*Task, 0, len(r.order))
	for _, name := range r.order {
		tasks = append(tasks, r.items[name])
	}
	return tasks
}

// Names returns the registered task names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Run executes the named tasks, or every task when names is nil, and
// returns their snapshots in execution order.
//
// Unknown names are skipped. Tasks are grouped by order; groups run in
// ascending order and the tasks of a group run concurrently. A task failure
// is logged and its snapshot takes the place of a result. Run returns nil
// when the registry is empty.
func (r *Registry) Run(ctx context.Context, env Env, names []string) []Info {
	tasks := r.selectTasks(names)
	if tasks == nil {
		r.logger.Info(ctx, "no tasks")
		return nil
	}

	results := make([]Info, 0, len(tasks))
	for _, group := range groupByOrder(tasks) {
		results = append(results, r.runGroup(ctx, env, group)...)
	}
	return results
}

func (r *Registry) selectTasks(names []string) []*Task {
	all := r.GetAll()
	if len(all) == 0 {
		return nil
	}
	if names == nil {
		return all
	}

	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	selected := make([]*Task, 0, len(names))
	for _, t := range all {
		if _, ok := wanted[t.Name()]; ok {
			selected = append(selected, t)
		}
	}
	return selected
}

func (r *Registry) runGroup(ctx context.Context, env Env, group []*Task) []Info {
	results := make([]Info, len(group))

	var g errgroup.Group
	for i, t := range group {
		g.Go(func() error {
			logger := r.logger.WithCheck(observe.CheckMeta{Name: t.Name(), Critical: t.Critical(), Scope: env.Scope})
			taskEnv := env
			taskEnv.Logger = logger

			info, err := t.Run(ctx, taskEnv)
			if err != nil {
				logger.Error(ctx, fmt.Sprintf("Error running task [%s]: %s", t.Name(), err.Error()))
				if errors.Is(err, ErrAlreadyRunning) {
					info = t.Info()
				}
			}
			results[i] = info
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// groupByOrder sorts tasks by order, unset orders last, and splits them into
// runs of equal order. Registration order is kept inside a group.
func groupByOrder(tasks []*Task) [][]*Task {
	sorted := make([]*Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return orderKey(sorted[i]) < orderKey(sorted[j])
	})

	var groups [][]*Task
	for i, t := range sorted {
		if i == 0 || orderKey(sorted[i-1]) != orderKey(t) {
			groups = append(groups, []*Task{t})
			continue
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], t)
	}
	return groups
}

func orderKey(t *Task) int {
	if o, ok := t.Order(); ok {
		return o
	}
	return math.MaxInt
}
