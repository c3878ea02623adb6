package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/healthcheck/health"
)

func TestParseFileConfig(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")

	fc, err := parseFileConfig([]byte(`
healthcheck:
  checks_enabled: "^db:.*"
  interval: 10m
  max_retries: 2
checks:
  - name: db:postgres
    type: postgres
    dsn: postgres://wazuh:${DB_PASSWORD}@db:5432/wazuh?sslmode=disable
    critical: true
    order: 1
  - name: db:tcp
    type: tcp
    address: db:5432
    timeout: 2s
`))
	if err != nil {
		t.Fatalf("parseFileConfig() error = %v", err)
	}

	if fc.Healthcheck.Interval != 10*time.Minute || fc.Healthcheck.MaxRetries != 2 {
		t.Errorf("Healthcheck = %+v", fc.Healthcheck)
	}
	if fc.Healthcheck.RetriesDelay != health.DefaultConfig().RetriesDelay {
		t.Errorf("RetriesDelay = %v, want default", fc.Healthcheck.RetriesDelay)
	}
	if len(fc.Checks) != 2 {
		t.Fatalf("len(Checks) = %d, want 2", len(fc.Checks))
	}

	db := fc.Checks[0]
	if !strings.Contains(db.DSN, ":secret@") {
		t.Errorf("DSN = %q, want the password expanded", db.DSN)
	}
	if db.Order == nil || *db.Order != 1 || !db.Critical {
		t.Errorf("db check = %+v", db)
	}
	if fc.Checks[1].Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", fc.Checks[1].Timeout)
	}
}

func TestParseFileConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing env", "checks:\n  - name: a\n    type: tcp\n    address: ${UNSET_ADDRESS_VAR}\n", "UNSET_ADDRESS_VAR"},
		{"invalid healthcheck", "healthcheck:\n  max_retries: 0\n", "max_retries"},
		{"unnamed check", "checks:\n  - type: memory\n", "name is required"},
		{"duplicate check", "checks:\n  - name: a\n    type: memory\n  - name: a\n    type: memory\n", "duplicate name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFileConfig([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("parseFileConfig() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParseFileConfig_InvalidHealthcheckIsInvalidConfig(t *testing.T) {
	_, err := parseFileConfig([]byte("healthcheck:\n  interval: 1s\n"))
	if !errors.Is(err, health.ErrInvalidConfig) {
		t.Errorf("parseFileConfig() error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoadFileConfig(t *testing.T) {
	fc, err := loadFileConfig("")
	if err != nil {
		t.Fatalf("loadFileConfig(\"\") error = %v", err)
	}
	if len(fc.Checks) != 1 || fc.Checks[0].Type != checkMemory {
		t.Errorf("default checks = %+v, want one memory check", fc.Checks)
	}

	path := filepath.Join(t.TempDir(), "healthcheckd.yaml")
	if err := os.WriteFile(path, []byte("checks:\n  - name: mem\n    type: memory\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	fc, err = loadFileConfig(path)
	if err != nil {
		t.Fatalf("loadFileConfig() error = %v", err)
	}
	if len(fc.Checks) != 1 || fc.Checks[0].Name != "mem" {
		t.Errorf("Checks = %+v", fc.Checks)
	}

	if _, err := loadFileConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("loadFileConfig() on a missing file should fail")
	}
}

func TestBuildCheck(t *testing.T) {
	tests := []struct {
		name    string
		cc      checkConfig
		wantErr string
	}{
		{"http", checkConfig{Name: "api", Type: checkHTTP, URL: "http://localhost:9200"}, ""},
		{"http without url", checkConfig{Name: "api", Type: checkHTTP}, "url is required"},
		{"tcp", checkConfig{Name: "tcp", Type: checkTCP, Address: "localhost:1514"}, ""},
		{"tcp without address", checkConfig{Name: "tcp", Type: checkTCP}, "address is required"},
		{"memory", checkConfig{Name: "mem", Type: checkMemory, Threshold: 0.8}, ""},
		{"postgres", checkConfig{Name: "db", Type: checkPostgres, DSN: "postgres://localhost/db"}, ""},
		{"postgres without dsn", checkConfig{Name: "db", Type: checkPostgres}, "dsn is required"},
		{"container", checkConfig{Name: "c", Type: checkContainer, Container: "wazuh-indexer"}, ""},
		{"container without name", checkConfig{Name: "c", Type: checkContainer}, "container is required"},
		{"unknown", checkConfig{Name: "x", Type: "ldap"}, `unknown type "ldap"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := buildCheck(tt.cc)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("buildCheck() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildCheck() error = %v", err)
			}
			if def.Name != tt.cc.Name || def.Run == nil {
				t.Errorf("buildCheck() = %+v", def)
			}
		})
	}
}
