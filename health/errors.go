package health

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycleFailed indicates a check cycle ended with failing checks.
	ErrCycleFailed = errors.New("health: check cycle failed")

	// ErrInvalidConfig indicates a Config failed validation.
	ErrInvalidConfig = errors.New("health: invalid config")

	// ErrNotConfigured indicates Start or a run was requested before Setup.
	ErrNotConfigured = errors.New("health: not configured")

	// ErrAlreadyStarted indicates Setup or Start was called after Start.
	ErrAlreadyStarted = errors.New("health: already started")

	// ErrStopped indicates the health check was stopped.
	ErrStopped = errors.New("health: stopped")
)

// CycleError reports the checks that made a cycle fail. It matches
// ErrCycleFailed with errors.Is.
type CycleError struct {
	// Failed lists the checks that were unfinished, or critical and not green.
	Failed []string

	// Total is the number of checks that ran in the cycle.
	Total int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("Some checks failed: [%d/%d] %s", len(e.Failed), e.Total, strings.Join(e.Failed, ","))
}

func (e *CycleError) Unwrap() error {
	return ErrCycleFailed
}

// InvalidNamesError is returned when a request names checks that are not
// registered.
type InvalidNamesError struct {
	Names []string
}

func (e *InvalidNamesError) Error() string {
	return "Invalid tasks: " + strings.Join(e.Names, ", ")
}
