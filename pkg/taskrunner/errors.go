package taskrunner

import (
	"errors"
	"fmt"
)

// SignalExitCode is reported when a child was terminated by a signal and produced no exit code.
const SignalExitCode = -1

const (
	spawnErrorTemplateConstant = "task %q: failed to spawn %s: %v"
	exitErrorTemplateConstant  = "task %q failed with exit code %d"
)

// SpawnError reports a task whose process could not be started.
type SpawnError struct {
	TaskName   string
	Executable string
	Cause      error
}

// Error describes the spawn failure.
func (spawnError *SpawnError) Error() string {
	return fmt.Sprintf(spawnErrorTemplateConstant, spawnError.TaskName, spawnError.Executable, spawnError.Cause)
}

// Unwrap exposes the underlying error.
func (spawnError *SpawnError) Unwrap() error {
	return spawnError.Cause
}

// ExitError reports a task whose process ran and exited with a non-zero status.
type ExitError struct {
	TaskName string
	ExitCode int
}

// Error describes the exit status.
func (exitError *ExitError) Error() string {
	return fmt.Sprintf(exitErrorTemplateConstant, exitError.TaskName, exitError.ExitCode)
}

// ExitCodeOf extracts the exit code of a failed task anywhere in the error chain.
func ExitCodeOf(err error) (int, bool) {
	var exitError *ExitError
	if !errors.As(err, &exitError) {
		return 0, false
	}
	return exitError.ExitCode, true
}
