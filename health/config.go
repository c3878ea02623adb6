package health

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config limits.
const (
	MinInterval     = 5 * time.Minute
	MaxInterval     = 24 * time.Hour
	MaxRetriesDelay = time.Minute
)

// DefaultTroubleshootingLink is shown while the server is not ready.
const DefaultTroubleshootingLink = "https://documentation.wazuh.com/5.0/user-manual/wazuh-dashboard/troubleshooting.html#none-of-the-above-solutions-are-fixing-my-problem"

var linkPattern = regexp.MustCompile(`(?i)^(https?://)[\w\-]+(\.[\w\-]+)+([/?#].*)?$`)

// Patterns is a list of check name patterns. In YAML it may be written as a
// single string or a list.
type Patterns []string

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (p *Patterns) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*p = Patterns{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*p = list
		return nil
	default:
		return fmt.Errorf("checks_enabled: expected a string or a list of strings (line %d)", value.Line)
	}
}

// Config configures a HealthCheck.
type Config struct {
	// Enabled turns the health check on. When false Start does nothing.
	Enabled bool `yaml:"enabled"`

	// ChecksEnabled selects the checks that run. See FilterByRegex.
	ChecksEnabled Patterns `yaml:"checks_enabled"`

	// Interval is the period of scheduled cycles.
	Interval time.Duration `yaml:"interval"`

	// RetriesDelay is the wait between attempts of a failing cycle.
	RetriesDelay time.Duration `yaml:"retries_delay"`

	// MaxRetries is the total number of attempts of a cycle.
	MaxRetries int `yaml:"max_retries"`

	// TroubleshootingLink is shown to clients while the server is not ready.
	TroubleshootingLink string `yaml:"server_not_ready_troubleshooting_link"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		ChecksEnabled:       Patterns{".*"},
		Interval:            15 * time.Minute,
		RetriesDelay:        2500 * time.Millisecond,
		MaxRetries:          5,
		TroubleshootingLink: DefaultTroubleshootingLink,
	}
}

// Validate checks value ranges and that every pattern compiles.
func (c Config) Validate() error {
	var errs []error

	for _, p := range c.ChecksEnabled {
		if p == "" {
			errs = append(errs, errors.New("checks_enabled: pattern must not be empty"))
			continue
		}
		if _, err := compilePattern(p); err != nil {
			errs = append(errs, fmt.Errorf("checks_enabled: %q is not a valid regular expression: %v", p, err))
		}
	}
	if c.Interval < MinInterval || c.Interval > MaxInterval {
		errs = append(errs, fmt.Errorf("interval: %s is not between %s and %s", c.Interval, MinInterval, MaxInterval))
	}
	if c.RetriesDelay < 0 || c.RetriesDelay > MaxRetriesDelay {
		errs = append(errs, fmt.Errorf("retries_delay: %s is not between 0s and %s", c.RetriesDelay, MaxRetriesDelay))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("max_retries: %d is less than 1", c.MaxRetries))
	}
	if !linkPattern.MatchString(c.TroubleshootingLink) {
		errs = append(errs, fmt.Errorf("server_not_ready_troubleshooting_link: %q is not a valid URL", c.TroubleshootingLink))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// MarshalJSON encodes durations as milliseconds.
func (c Config) MarshalJSON() ([]byte, error) {
	patterns := c.ChecksEnabled
	if patterns == nil {
		patterns = Patterns{}
	}
	return json.Marshal(struct {
		Enabled             bool     `json:"enabled"`
		ChecksEnabled       []string `json:"checks_enabled"`
		Interval            int64    `json:"interval"`
		RetriesDelay        int64    `json:"retries_delay"`
		MaxRetries          int      `json:"max_retries"`
		TroubleshootingLink string   `json:"server_not_ready_troubleshooting_link"`
	}{
		Enabled:             c.Enabled,
		ChecksEnabled:       patterns,
		Interval:            c.Interval.Milliseconds(),
		RetriesDelay:        c.RetriesDelay.Milliseconds(),
		MaxRetries:          c.MaxRetries,
		TroubleshootingLink: c.TroubleshootingLink,
	})
}

func (c Config) clone() Config {
	c.ChecksEnabled = append(Patterns(nil), c.ChecksEnabled...)
	return c
}

// ParseConfig decodes YAML onto DefaultConfig, expanding ${VAR} references
// first, and validates the result.
func ParseConfig(data []byte) (Config, error) {
	expanded, err := ExpandEnvStrict(string(data))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("health: read config: %w", err)
	}
	return ParseConfig(data)
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment variables in s.
//
// Semantics:
//   - `$VAR` and `${VAR}` are expanded via os.ExpandEnv.
//   - If `${VAR}` is present but VAR is missing from the environment, it errors.
//   - `$$` emits a literal `$`.
func ExpandEnvStrict(s string) (string, error) {
	const dollarSentinel = "\x00HEALTHCHECK_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	missing := make(map[string]struct{})
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(match[1]); !ok {
			missing[match[1]] = struct{}{}
		}
	}
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("missing required environment variables: %s", strings.Join(keys, ", "))
	}

	s = os.ExpandEnv(s)
	return strings.ReplaceAll(s, dollarSentinel, "$"), nil
}
