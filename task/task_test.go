package task

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNew_InitialState(t *testing.T) {
	tk := New(Definition{
		Name:     "db:ping",
		Run:      func(ctx context.Context, env Env) (any, error) { return nil, nil },
		Critical: true,
	})

	info := tk.Info()
	if info.Name != "db:ping" {
		t.Errorf("Name = %q, want db:ping", info.Name)
	}
	if info.Status != StatusNotStarted {
		t.Errorf("Status = %v, want %v", info.Status, StatusNotStarted)
	}
	if info.Result != ResultGray {
		t.Errorf("Result = %v, want %v", info.Result, ResultGray)
	}
	if info.StartedAt != nil || info.FinishedAt != nil || info.Duration != nil {
		t.Error("timestamps and duration should be nil before the first run")
	}
	if info.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set at construction")
	}
	if !info.Critical {
		t.Error("Critical should be copied from the definition")
	}
	if info.Enabled {
		t.Error("Enabled should default to false")
	}
	if _, ok := tk.Order(); ok {
		t.Error("Order should be unset")
	}
}

func TestTask_RunSuccess(t *testing.T) {
	tk := New(Definition{
		Name: "ok",
		Run: func(ctx context.Context, env Env) (any, error) {
			return map[string]any{"version": "1.2.3"}, nil
		},
	})

	info, err := tk.Run(context.Background(), Env{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if info.Status != StatusFinished {
		t.Errorf("Status = %v, want finished", info.Status)
	}
	if info.Result != ResultGreen {
		t.Errorf("Result = %v, want green", info.Result)
	}
	if info.Error != "" {
		t.Errorf("Error = %q, want empty", info.Error)
	}
	if !reflect.DeepEqual(info.Data, map[string]any{"version": "1.2.3"}) {
		t.Errorf("Data = %v, want payload", info.Data)
	}
	if info.StartedAt == nil || info.FinishedAt == nil || info.Duration == nil {
		t.Fatal("timestamps and duration should be set after a run")
	}
	want := float64(info.FinishedAt.Sub(*info.StartedAt).Milliseconds()) / 1000
	if *info.Duration != want {
		t.Errorf("Duration = %v, want %v", *info.Duration, want)
	}
}

func TestTask_RunFailureResult(t *testing.T) {
	tests := []struct {
		name     string
		critical bool
		want     Result
	}{
		{"non-critical is yellow", false, ResultYellow},
		{"critical is red", true, ResultRed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runErr := errors.New("connection refused")
			tk := New(Definition{
				Name:     "failing",
				Critical: tt.critical,
				Run: func(ctx context.Context, env Env) (any, error) {
					return "partial", runErr
				},
			})

			info, err := tk.Run(context.Background(), Env{})
			if err != runErr {
				t.Errorf("Run() error = %v, want the original error", err)
			}
			if info.Result != tt.want {
				t.Errorf("Result = %v, want %v", info.Result, tt.want)
			}
			if info.Status != StatusFinished {
				t.Errorf("Status = %v, want finished", info.Status)
			}
			if info.Error != "connection refused" {
				t.Errorf("Error = %q, want %q", info.Error, "connection refused")
			}
			if info.Data != nil {
				t.Errorf("Data = %v, want nil on failure", info.Data)
			}
		})
	}
}

func TestTask_FailureResetsStaleData(t *testing.T) {
	fail := false
	tk := New(Definition{
		Name: "flappy",
		Run: func(ctx context.Context, env Env) (any, error) {
			if fail {
				return nil, errors.New("down")
			}
			return "up", nil
		},
	})

	if info, _ := tk.Run(context.Background(), Env{}); info.Data != "up" {
		t.Fatalf("Data = %v, want up", info.Data)
	}

	fail = true
	if info, _ := tk.Run(context.Background(), Env{}); info.Data != nil {
		t.Errorf("Data = %v, want nil after failure", info.Data)
	}

	fail = false
	info, err := tk.Run(context.Background(), Env{})
	if err != nil || info.Result != ResultGreen || info.Error != "" {
		t.Errorf("rerun: result = %v, error = %q, err = %v; want green, empty, nil", info.Result, info.Error, err)
	}
}

func TestTask_PanicIsRecorded(t *testing.T) {
	tk := New(Definition{
		Name:     "panicky",
		Critical: true,
		Run: func(ctx context.Context, env Env) (any, error) {
			panic("nil map")
		},
	})

	info, err := tk.Run(context.Background(), Env{})
	if !errors.Is(err, ErrPanicked) {
		t.Fatalf("Run() error = %v, want ErrPanicked", err)
	}
	if info.Result != ResultRed {
		t.Errorf("Result = %v, want red", info.Result)
	}
	if info.Status != StatusFinished {
		t.Errorf("Status = %v, want finished", info.Status)
	}
}

func TestTask_AlreadyRunning(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	tk := New(Definition{
		Name: "slow",
		Run: func(ctx context.Context, env Env) (any, error) {
			close(started)
			<-release
			return "done", nil
		},
	})

	type outcome struct {
		info Info
		err  error
	}
	first := make(chan outcome, 1)
	go func() {
		info, err := tk.Run(context.Background(), Env{})
		first <- outcome{info, err}
	}()

	<-started

	if got := tk.Info(); got.Status != StatusRunning || got.Result != ResultGray {
		t.Errorf("while running: status = %v, result = %v; want running, gray", got.Status, got.Result)
	}

	if _, err := tk.Run(context.Background(), Env{}); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}

	close(release)
	res := <-first
	if res.err != nil {
		t.Fatalf("first Run() error = %v", res.err)
	}
	if res.info.Result != ResultGreen || res.info.Data != "done" {
		t.Errorf("first run outcome = %v/%v, want green/done", res.info.Result, res.info.Data)
	}
}

func TestTask_InfoIdempotent(t *testing.T) {
	tk := New(Definition{
		Name: "stable",
		Run:  func(ctx context.Context, env Env) (any, error) { return 42, nil },
	})
	if _, err := tk.Run(context.Background(), Env{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	a, b := tk.Info(), tk.Info()
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Info() not idempotent:\n%+v\n%+v", a, b)
	}
}

func TestTask_InfoIsSnapshot(t *testing.T) {
	tk := New(Definition{
		Name: "snap",
		Run:  func(ctx context.Context, env Env) (any, error) { return nil, nil },
	})
	if _, err := tk.Run(context.Background(), Env{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	info := tk.Info()
	*info.StartedAt = time.Time{}
	if tk.Info().StartedAt.IsZero() {
		t.Error("mutating a snapshot must not change the task")
	}
}

func TestTask_OrderCopied(t *testing.T) {
	order := 3
	tk := New(Definition{Name: "o", Order: &order, Run: func(ctx context.Context, env Env) (any, error) { return nil, nil }})
	order = 9

	got, ok := tk.Order()
	if !ok || got != 3 {
		t.Errorf("Order() = %d, %v; want 3, true", got, ok)
	}
}

func TestTask_SetResult(t *testing.T) {
	tk := New(Definition{Name: "s", Run: func(ctx context.Context, env Env) (any, error) { return nil, nil }})

	if err := tk.SetResult(ResultYellow); !errors.Is(err, ErrNotFinished) {
		t.Errorf("SetResult before run error = %v, want ErrNotFinished", err)
	}

	if _, err := tk.Run(context.Background(), Env{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := tk.SetResult("purple"); err == nil {
		t.Error("SetResult with invalid color should fail")
	}
	if err := tk.SetResult(ResultYellow); err != nil {
		t.Fatalf("SetResult() error = %v", err)
	}
	if got := tk.Info().Result; got != ResultYellow {
		t.Errorf("Result = %v, want yellow", got)
	}
}

func TestTask_EnvPassedThrough(t *testing.T) {
	var got Env
	tk := New(Definition{
		Name: "env",
		Run: func(ctx context.Context, env Env) (any, error) {
			got = env
			return nil, nil
		},
	})

	if _, err := tk.Run(context.Background(), Env{Services: "svc", Scope: ScopeInternal}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Services != "svc" || got.Scope != ScopeInternal {
		t.Errorf("env = %+v, want services=svc scope=internal", got)
	}
}
