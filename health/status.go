package health

import (
	"slices"
	"strings"

	"github.com/jonwraymond/healthcheck/task"
)

// Status is the outcome of the latest check cycle.
type Status struct {
	// OK is true once a cycle finished with every critical check green.
	OK bool `json:"ok"`

	// Result is the aggregate color of Checks.
	Result task.Result `json:"status"`

	// Checks are the snapshots of the checks that ran, sorted by name.
	Checks []task.Info `json:"checks"`

	// Error is set when the cycle exhausted its retries.
	Error string `json:"error,omitempty"`
}

func initialStatus() Status {
	return Status{Result: task.ResultGray, Checks: []task.Info{}}
}

// Overall reduces check snapshots to one color.
//
// Only finished, non-green checks count: red if any of them is critical,
// yellow if any is not, green otherwise. The input order does not matter.
func Overall(checks []task.Info) task.Result {
	overall := task.ResultGreen
	for _, c := range checks {
		if c.Status != task.StatusFinished || c.Result == task.ResultGreen {
			continue
		}
		if c.Critical {
			return task.ResultRed
		}
		overall = task.ResultYellow
	}
	return overall
}

func sortByName(checks []task.Info) {
	slices.SortStableFunc(checks, func(a, b task.Info) int {
		return strings.Compare(a.Name, b.Name)
	})
}

// failedChecks returns the checks that fail a cycle: unfinished ones and
// critical ones that are not green.
func failedChecks(checks []task.Info) []string {
	var failed []string
	for _, c := range checks {
		if c.Status != task.StatusFinished || (c.Critical && c.Result != task.ResultGreen) {
			failed = append(failed, c.Name)
		}
	}
	return failed
}
