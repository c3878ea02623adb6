package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"valid", Config{ServiceName: "svc"}, nil},
		{"missing service name", Config{}, ErrMissingServiceName},
		{"valid log level", Config{ServiceName: "svc", Logging: LoggingConfig{Enabled: true, Level: "debug"}}, nil},
		{"invalid log level", Config{ServiceName: "svc", Logging: LoggingConfig{Enabled: true, Level: "loud"}}, ErrInvalidLogLevel},
		{"invalid level ignored when disabled", Config{ServiceName: "svc", Logging: LoggingConfig{Level: "loud"}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_Noops(t *testing.T) {
	obs, err := NewObserver(Config{ServiceName: "observe-test"})
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}

	if obs.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	if obs.Meter() == nil {
		t.Fatal("expected non-nil meter")
	}
	if obs.Logger() == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewObserver_LoggingEnabled(t *testing.T) {
	var buf bytes.Buffer
	obs, err := NewObserver(Config{
		ServiceName: "observe-test",
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
	}, WithLogWriter(&buf))
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}

	obs.Logger().Info(context.Background(), "hello")
	if buf.Len() == 0 {
		t.Error("expected log output on the configured writer")
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	if _, err := NewObserver(Config{}); !errors.Is(err, ErrMissingServiceName) {
		t.Errorf("NewObserver() error = %v, want ErrMissingServiceName", err)
	}
}
