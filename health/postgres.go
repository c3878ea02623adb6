package health

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/jonwraymond/healthcheck/task"
)

// PostgresCheckConfig configures a PostgreSQL connectivity check.
type PostgresCheckConfig struct {
	Name string

	// DSN is a lib/pq connection string or URL.
	DSN string

	// Timeout bounds one ping. Default: 5s.
	Timeout time.Duration

	Order    *int
	Critical bool
}

// PostgresCheck returns a check that pings a PostgreSQL server. The
// connection pool is opened on first run and reused.
func PostgresCheck(config PostgresCheckConfig) task.Definition {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	var (
		once    sync.Once
		db      *sql.DB
		openErr error
	)

	return task.Definition{
		Name:     config.Name,
		Order:    config.Order,
		Critical: config.Critical,
		Run: func(ctx context.Context, env task.Env) (any, error) {
			once.Do(func() {
				db, openErr = sql.Open("postgres", config.DSN)
				if openErr == nil {
					db.SetMaxOpenConns(1)
				}
			})
			if openErr != nil {
				return nil, fmt.Errorf("failed to open database: %w", openErr)
			}

			pingCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			if err := db.PingContext(pingCtx); err != nil {
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}
			return map[string]any{"latency_ms": time.Since(start).Milliseconds()}, nil
		},
	}
}
