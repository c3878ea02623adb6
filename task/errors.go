package task

import "errors"

var (
	// ErrDuplicateName indicates a task with the same name is already registered.
	ErrDuplicateName = errors.New("task: duplicate task name")

	// ErrNotFound indicates no task is registered under the requested name.
	ErrNotFound = errors.New("task: not found")

	// ErrAlreadyRunning indicates Run was called while the task was running.
	ErrAlreadyRunning = errors.New("task: already running")

	// ErrPanicked indicates the task function panicked.
	ErrPanicked = errors.New("task: panicked")
)

var (
	// ErrInvalidDefinition indicates a Definition without a name or run function.
	ErrInvalidDefinition = errors.New("task: invalid definition")

	// ErrNotFinished indicates an operation that needs a finished run.
	ErrNotFinished = errors.New("task: not finished")
)
