package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/healthcheck/health"
	"github.com/jonwraymond/healthcheck/observe"
)

const serviceName = "healthcheckd"

type rootOptions struct {
	configFile string
	envFile    string
	addr       string
	logLevel   string
	prefix     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   serviceName,
		Short: "Run health checks and serve their status",
		Long: `healthcheckd registers the checks listed in its config file, waits until
every critical check passes, then re-runs them on an interval.

The status is served on /healthz, /readyz and under the API prefix.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "config file (YAML)")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load before reading the config (default .env if present)")
	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "/api/healthcheck", "path prefix of the config and tasks endpoints")

	return cmd
}

func loadEnv(path string) error {
	if path == "" {
		// .env is optional.
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func run(ctx context.Context, opts *rootOptions) error {
	if err := loadEnv(opts.envFile); err != nil {
		return err
	}

	fc, err := loadFileConfig(opts.configFile)
	if err != nil {
		return err
	}

	obs, err := observe.NewObserver(observe.Config{
		ServiceName: serviceName,
		Tracing:     observe.TracingConfig{Enabled: true},
		Metrics:     observe.MetricsConfig{Enabled: true},
		Logging:     observe.LoggingConfig{Enabled: true, Level: opts.logLevel},
	})
	if err != nil {
		return fmt.Errorf("create observer: %w", err)
	}
	logger := obs.Logger()

	hc, err := health.New(health.WithObserver(obs))
	if err != nil {
		return err
	}
	defer hc.Stop()

	for _, cc := range fc.Checks {
		def, err := buildCheck(cc)
		if err != nil {
			return err
		}
		if err := hc.Register(def); err != nil {
			return err
		}
	}
	if err := hc.Setup(fc.Healthcheck); err != nil {
		return err
	}

	e := newServer(hc, opts.prefix)
	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", observe.Field{Key: "addr", Value: opts.addr})
		if err := e.Start(opts.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	go func() {
		if err := hc.Start(ctx, nil); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, health.ErrStopped) {
			logger.Error(ctx, "health check start failed", observe.ErrorField(err))
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info(context.Background(), "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info(context.Background(), "server stopped")
	return nil
}
