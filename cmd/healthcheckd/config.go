package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/healthcheck/health"
	"github.com/jonwraymond/healthcheck/task"
)

// Check types.
const (
	checkHTTP      = "http"
	checkTCP       = "tcp"
	checkMemory    = "memory"
	checkPostgres  = "postgres"
	checkContainer = "container"
)

type fileConfig struct {
	Healthcheck health.Config `yaml:"healthcheck"`
	Checks      []checkConfig `yaml:"checks"`
}

type checkConfig struct {
	Name     string        `yaml:"name"`
	Type     string        `yaml:"type"`
	Order    *int          `yaml:"order"`
	Critical bool          `yaml:"critical"`
	Timeout  time.Duration `yaml:"timeout"`

	URL       string  `yaml:"url"`
	Address   string  `yaml:"address"`
	DSN       string  `yaml:"dsn"`
	Container string  `yaml:"container"`
	Threshold float64 `yaml:"threshold"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Healthcheck: health.DefaultConfig(),
		Checks:      []checkConfig{{Name: "memory", Type: checkMemory}},
	}
}

// loadFileConfig reads path, expanding ${VAR} references. An empty path
// yields the defaults with a single memory check.
func loadFileConfig(path string) (fileConfig, error) {
	if path == "" {
		return defaultFileConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config: %w", err)
	}
	return parseFileConfig(data)
}

func parseFileConfig(data []byte) (fileConfig, error) {
	expanded, err := health.ExpandEnvStrict(string(data))
	if err != nil {
		return fileConfig{}, fmt.Errorf("config: %w", err)
	}

	fc := fileConfig{Healthcheck: health.DefaultConfig()}
	if err := yaml.Unmarshal([]byte(expanded), &fc); err != nil {
		return fileConfig{}, fmt.Errorf("config: %w", err)
	}

	errs := []error{fc.Healthcheck.Validate()}
	seen := make(map[string]bool, len(fc.Checks))
	for i, cc := range fc.Checks {
		if cc.Name == "" {
			errs = append(errs, fmt.Errorf("checks[%d]: name is required", i))
			continue
		}
		if seen[cc.Name] {
			errs = append(errs, fmt.Errorf("checks[%d]: duplicate name %q", i, cc.Name))
		}
		seen[cc.Name] = true
	}
	if err := errors.Join(errs...); err != nil {
		return fileConfig{}, err
	}
	return fc, nil
}

// buildCheck turns a config entry into a check definition.
func buildCheck(cc checkConfig) (task.Definition, error) {
	switch cc.Type {
	case checkHTTP:
		if cc.URL == "" {
			return task.Definition{}, fmt.Errorf("check %s: url is required", cc.Name)
		}
		return health.HTTPCheck(health.HTTPCheckConfig{
			Name: cc.Name, URL: cc.URL, Timeout: cc.Timeout, Order: cc.Order, Critical: cc.Critical,
		}), nil
	case checkTCP:
		if cc.Address == "" {
			return task.Definition{}, fmt.Errorf("check %s: address is required", cc.Name)
		}
		return health.TCPCheck(health.TCPCheckConfig{
			Name: cc.Name, Address: cc.Address, Timeout: cc.Timeout, Order: cc.Order, Critical: cc.Critical,
		}), nil
	case checkMemory:
		return health.MemoryCheck(health.MemoryCheckConfig{
			Name: cc.Name, Threshold: cc.Threshold, Order: cc.Order, Critical: cc.Critical,
		}), nil
	case checkPostgres:
		if cc.DSN == "" {
			return task.Definition{}, fmt.Errorf("check %s: dsn is required", cc.Name)
		}
		return health.PostgresCheck(health.PostgresCheckConfig{
			Name: cc.Name, DSN: cc.DSN, Timeout: cc.Timeout, Order: cc.Order, Critical: cc.Critical,
		}), nil
	case checkContainer:
		if cc.Container == "" {
			return task.Definition{}, fmt.Errorf("check %s: container is required", cc.Name)
		}
		return health.ContainerCheck(health.ContainerCheckConfig{
			Name: cc.Name, Container: cc.Container, Timeout: cc.Timeout, Order: cc.Order, Critical: cc.Critical,
		}), nil
	default:
		return task.Definition{}, fmt.Errorf("check %s: unknown type %q", cc.Name, cc.Type)
	}
}
