package health_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/jonwraymond/healthcheck/health"
	"github.com/jonwraymond/healthcheck/task"
)

func ExampleFilterByRegex() {
	names := []string{"test:1", "test:2", "another-test:1", "another-more-test:1"}

	fmt.Println(health.FilterByRegex(names, []string{"^test:.*"}))
	fmt.Println(health.FilterByRegex(names, []string{"^(?!test:).*", "^test:1"}))
	fmt.Println(health.FilterByRegex(names, []string{"/^TEST:2$/i"}))
	// Output:
	// [test:1 test:2]
	// [test:1 another-test:1 another-more-test:1]
	// [test:2]
}

func ExampleOverall() {
	checks := []task.Info{
		{Name: "db", Status: task.StatusFinished, Result: task.ResultGreen, Critical: true},
		{Name: "cache", Status: task.StatusFinished, Result: task.ResultYellow},
	}
	fmt.Println(health.Overall(checks))

	checks = append(checks, task.Info{Name: "indexer", Status: task.StatusFinished, Result: task.ResultRed, Critical: true})
	fmt.Println(health.Overall(checks))
	// Output:
	// yellow
	// red
}

func ExampleHealthCheck_RunNamed() {
	hc, _ := health.New()
	defer hc.Stop()

	_ = hc.Register(task.Definition{
		Name:     "db",
		Critical: true,
		Run: func(ctx context.Context, env task.Env) (any, error) {
			return map[string]any{"connections": 3}, nil
		},
	})
	_ = hc.Register(task.Definition{
		Name: "cache",
		Run: func(ctx context.Context, env task.Env) (any, error) {
			return nil, errors.New("cache unavailable")
		},
	})

	cfg := health.DefaultConfig()
	cfg.RetriesDelay = 0
	_ = hc.Setup(cfg)

	st, err := hc.RunNamed(context.Background(), nil)
	fmt.Println("error:", err)
	fmt.Println("ok:", st.OK, "status:", st.Result)
	for _, c := range st.Checks {
		fmt.Printf("%s: %s\n", c.Name, c.Result)
	}
	// Output:
	// error: <nil>
	// ok: true status: yellow
	// cache: yellow
	// db: green
}

func ExampleHealthCheck_Start() {
	hc, _ := health.New()
	defer hc.Stop()

	_ = hc.Register(task.Definition{
		Name:     "db",
		Critical: true,
		Run: func(ctx context.Context, env task.Env) (any, error) {
			return nil, nil
		},
	})
	_ = hc.Setup(health.DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := hc.Start(ctx, nil); err != nil {
		fmt.Println("start:", err)
		return
	}
	fmt.Println("state:", hc.State())
	fmt.Println("ready:", hc.Ready())
	// Output:
	// state: running
	// ready: true
}

func ExampleRegisterHandlers() {
	hc, _ := health.New()
	defer hc.Stop()

	_ = hc.Register(task.Definition{
		Name: "test",
		Run: func(ctx context.Context, env task.Env) (any, error) {
			return nil, nil
		},
	})
	_ = hc.Setup(health.DefaultConfig())

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, hc, "/api/healthcheck")

	// Not ready until Start succeeds.
	endpoints := []string{"/healthz", "/readyz", "/api/healthcheck/config", "/api/healthcheck/internal"}
	for _, ep := range endpoints {
		req := httptest.NewRequest("GET", ep, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		fmt.Printf("%s: %d\n", ep, rec.Code)
	}
	// Output:
	// /healthz: 200
	// /readyz: 503
	// /api/healthcheck/config: 200
	// /api/healthcheck/internal: 200
}
