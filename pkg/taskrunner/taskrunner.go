package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
)

const (
	runnerExecutorMissingMessageConstant  = "task runner command executor not configured"
	runningAnnouncementTemplateConstant   = "🔧 Running: %s\n"
	commandAnnouncementTemplateConstant   = "   Command: %s\n"
	directoryAnnouncementTemplateConstant = "   Working directory: %s\n"
	successConfirmationTemplateConstant   = "✅ %s: completed successfully\n\n"
	taskFailureTemplateConstant           = "task %q: %w"
)

// ErrCommandExecutorNotConfigured indicates a Runner was built without an executor.
var ErrCommandExecutorNotConfigured = errors.New(runnerExecutorMissingMessageConstant)

// CommandExecutor runs one shell command to completion.
type CommandExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Runner executes tasks one at a time and reports their progress.
type Runner struct {
	executor CommandExecutor
	output   io.Writer
	heading  *color.Color
	emphasis *color.Color
	success  *color.Color
}

// NewRunner builds a Runner that announces tasks on output and delegates process handling to executor.
func NewRunner(executor CommandExecutor, output io.Writer) (*Runner, error) {
	if executor == nil {
		return nil, ErrCommandExecutorNotConfigured
	}
	if output == nil {
		output = io.Discard
	}

	runner := &Runner{
		executor: executor,
		output:   output,
		heading:  color.New(color.FgCyan, color.Bold),
		emphasis: color.New(color.Faint),
		success:  color.New(color.FgGreen),
	}
	if !colorSupported(output) {
		runner.heading.DisableColor()
		runner.emphasis.DisableColor()
		runner.success.DisableColor()
	}
	return runner, nil
}

// Execute announces the task, runs it, and returns nil, a *SpawnError, or an *ExitError.
func (runner *Runner) Execute(executionContext context.Context, task Task) error {
	if len(task.executable) == 0 {
		return fmt.Errorf(taskFailureTemplateConstant, task.displayName, ErrExecutableMissing)
	}

	runner.announce(task)

	command := execshell.ShellCommand{
		Name: execshell.CommandName(task.executable),
		Details: execshell.CommandDetails{
			Arguments:            task.Arguments(),
			WorkingDirectory:     task.workingDirectory,
			EnvironmentVariables: task.EnvironmentOverrides(),
		},
	}

	_, executionError := runner.executor.Execute(executionContext, command)
	if executionError != nil {
		return translateExecutionError(task, executionError)
	}

	runner.success.Fprintf(runner.output, successConfirmationTemplateConstant, task.displayName)
	return nil
}

// RunTasks executes tasks in order and stops at the first failure, returning it unchanged.
func (runner *Runner) RunTasks(executionContext context.Context, tasks []Task) error {
	for _, task := range tasks {
		if executionError := runner.Execute(executionContext, task); executionError != nil {
			return executionError
		}
	}
	return nil
}

func (runner *Runner) announce(task Task) {
	runner.heading.Fprintf(runner.output, runningAnnouncementTemplateConstant, task.displayName)
	runner.emphasis.Fprintf(runner.output, commandAnnouncementTemplateConstant, task.CommandLine())
	if len(task.workingDirectory) > 0 {
		runner.emphasis.Fprintf(runner.output, directoryAnnouncementTemplateConstant, task.workingDirectory)
	}
}

func translateExecutionError(task Task, executionError error) error {
	var startError execshell.ProcessStartError
	if errors.As(executionError, &startError) {
		return &SpawnError{TaskName: task.displayName, Executable: task.executable, Cause: startError.Cause}
	}

	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) {
		return &ExitError{TaskName: task.displayName, ExitCode: failedError.Result.ExitCode}
	}

	return fmt.Errorf(taskFailureTemplateConstant, task.displayName, executionError)
}

func colorSupported(output io.Writer) bool {
	if color.NoColor {
		return false
	}
	file, isFile := output.(*os.File)
	return isFile && (file == os.Stdout || file == os.Stderr)
}
