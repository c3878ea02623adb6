package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jonwraymond/healthcheck/task"
)

const defaultProbeTimeout = 5 * time.Second

// HTTPCheckConfig configures an HTTP GET check.
type HTTPCheckConfig struct {
	Name string
	URL  string

	// Timeout bounds one request. Default: 5s.
	Timeout time.Duration

	// Client is used for requests. Default: a client with no timeout of its
	// own, bounded by Timeout.
	Client *http.Client

	Order    *int
	Critical bool
}

// HTTPCheck returns a check that succeeds when a GET to URL answers with a
// 2xx or 3xx status.
func HTTPCheck(config HTTPCheckConfig) task.Definition {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	client := config.Client
	if client == nil {
		client = &http.Client{}
	}

	return task.Definition{
		Name:     config.Name,
		Order:    config.Order,
		Critical: config.Critical,
		Run: func(ctx context.Context, env task.Env) (any, error) {
			if config.URL == "" {
				return nil, fmt.Errorf("url not configured")
			}

			reqCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, config.URL, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to create request: %w", err)
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode < 200 || resp.StatusCode >= 400 {
				return nil, fmt.Errorf("HTTP %d (unhealthy)", resp.StatusCode)
			}
			return map[string]any{"status_code": resp.StatusCode}, nil
		},
	}
}

// TCPCheckConfig configures a TCP dial check.
type TCPCheckConfig struct {
	Name    string
	Address string

	// Timeout bounds the dial. Default: 5s.
	Timeout time.Duration

	Order    *int
	Critical bool
}

// TCPCheck returns a check that succeeds when Address accepts a TCP
// connection.
func TCPCheck(config TCPCheckConfig) task.Definition {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	return task.Definition{
		Name:     config.Name,
		Order:    config.Order,
		Critical: config.Critical,
		Run: func(ctx context.Context, env task.Env) (any, error) {
			if config.Address == "" {
				return nil, fmt.Errorf("address not configured")
			}

			dialer := net.Dialer{Timeout: timeout}
			conn, err := dialer.DialContext(ctx, "tcp", config.Address)
			if err != nil {
				return nil, fmt.Errorf("connection failed: %w", err)
			}
			_ = conn.Close()

			return map[string]any{"address": config.Address}, nil
		},
	}
}
