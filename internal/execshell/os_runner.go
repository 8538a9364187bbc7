package execshell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	processStartErrorTemplateConstant = "unable to start %s: %v"
	outputRelayErrorTemplateConstant  = "relaying %s output failed: %w"
	processWaitErrorTemplateConstant  = "waiting for %s failed: %w"
	environmentEntryTemplateConstant  = "%s=%s"
	standardOutputStreamNameConstant  = "stdout"
	standardErrorStreamNameConstant   = "stderr"
	lineTerminatorByteConstant        = '\n'
	carriageReturnByteConstant        = '\r'
)

// ProcessStartError reports a command that could not be started at all.
type ProcessStartError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the start failure.
func (startError ProcessStartError) Error() string {
	return fmt.Sprintf(processStartErrorTemplateConstant, startError.Command.Name, startError.Cause)
}

// Unwrap exposes the underlying error.
func (startError ProcessStartError) Unwrap() error {
	return startError.Cause
}

// StreamingCommandRunner relays child output line by line while the child runs.
type StreamingCommandRunner struct {
	standardOutput io.Writer
	standardError  io.Writer
	linePrefix     string
	writeMutex     *sync.Mutex
}

// NewStreamingCommandRunner constructs a runner relaying stdout and stderr lines, each prefixed with linePrefix.
func NewStreamingCommandRunner(standardOutput io.Writer, standardError io.Writer, linePrefix string) *StreamingCommandRunner {
	if standardOutput == nil {
		standardOutput = io.Discard
	}
	if standardError == nil {
		standardError = io.Discard
	}
	return &StreamingCommandRunner{
		standardOutput: standardOutput,
		standardError:  standardError,
		linePrefix:     linePrefix,
		writeMutex:     &sync.Mutex{},
	}
}

// Run starts the command, drains both pipes concurrently, and reports the exit code.
func (runner *StreamingCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	process := newProcess(executionContext, command)

	standardOutputPipe, standardOutputPipeError := process.StdoutPipe()
	if standardOutputPipeError != nil {
		return ExecutionResult{}, ProcessStartError{Command: command, Cause: standardOutputPipeError}
	}
	standardErrorPipe, standardErrorPipeError := process.StderrPipe()
	if standardErrorPipeError != nil {
		return ExecutionResult{}, ProcessStartError{Command: command, Cause: standardErrorPipeError}
	}

	if startError := process.Start(); startError != nil {
		return ExecutionResult{}, ProcessStartError{Command: command, Cause: startError}
	}

	var relayGroup errgroup.Group
	relayGroup.Go(func() error {
		return runner.relay(standardOutputStreamNameConstant, standardOutputPipe, runner.standardOutput)
	})
	relayGroup.Go(func() error {
		return runner.relay(standardErrorStreamNameConstant, standardErrorPipe, runner.standardError)
	})

	// Wait closes the pipes, so both relays must reach EOF first.
	relayError := relayGroup.Wait()
	exitCode, waitError := resolveExitCode(process.Wait())
	if waitError != nil {
		return ExecutionResult{}, fmt.Errorf(processWaitErrorTemplateConstant, command.Name, waitError)
	}
	if relayError != nil {
		return ExecutionResult{ExitCode: exitCode}, relayError
	}

	return ExecutionResult{ExitCode: exitCode}, nil
}

func (runner *StreamingCommandRunner) relay(streamName string, source io.Reader, destination io.Writer) error {
	reader := bufio.NewReader(source)
	var writeFailure error
	for {
		line, readError := reader.ReadBytes(lineTerminatorByteConstant)
		if len(line) > 0 && writeFailure == nil {
			writeFailure = runner.writeLine(destination, line)
		}
		if readError == nil {
			continue
		}
		if writeFailure != nil {
			return fmt.Errorf(outputRelayErrorTemplateConstant, streamName, writeFailure)
		}
		if errors.Is(readError, io.EOF) {
			return nil
		}
		return fmt.Errorf(outputRelayErrorTemplateConstant, streamName, readError)
	}
}

func (runner *StreamingCommandRunner) writeLine(destination io.Writer, line []byte) error {
	line = bytes.TrimSuffix(line, []byte{lineTerminatorByteConstant})
	line = bytes.TrimSuffix(line, []byte{carriageReturnByteConstant})

	formatted := make([]byte, 0, len(runner.linePrefix)+len(line)+1)
	formatted = append(formatted, runner.linePrefix...)
	formatted = append(formatted, line...)
	formatted = append(formatted, lineTerminatorByteConstant)

	runner.writeMutex.Lock()
	defer runner.writeMutex.Unlock()
	_, writeError := destination.Write(formatted)
	return writeError
}

// CapturingCommandRunner buffers child output for callers that inspect it.
type CapturingCommandRunner struct{}

// NewCapturingCommandRunner constructs a buffering runner.
func NewCapturingCommandRunner() CapturingCommandRunner {
	return CapturingCommandRunner{}
}

// Run executes the command to completion and returns its captured output.
func (CapturingCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	process := newProcess(executionContext, command)

	var standardOutput bytes.Buffer
	var standardError bytes.Buffer
	process.Stdout = &standardOutput
	process.Stderr = &standardError

	if startError := process.Start(); startError != nil {
		return ExecutionResult{}, ProcessStartError{Command: command, Cause: startError}
	}

	exitCode, waitError := resolveExitCode(process.Wait())
	if waitError != nil {
		return ExecutionResult{}, fmt.Errorf(processWaitErrorTemplateConstant, command.Name, waitError)
	}

	return ExecutionResult{
		StandardOutput: standardOutput.String(),
		StandardError:  standardError.String(),
		ExitCode:       exitCode,
	}, nil
}

func newProcess(executionContext context.Context, command ShellCommand) *exec.Cmd {
	if executionContext == nil {
		executionContext = context.Background()
	}
	process := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = buildEnvironment(command.Details.EnvironmentVariables)
	return process
}

// buildEnvironment returns nil when no overrides are present so the child inherits the parent environment as is.
func buildEnvironment(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}

	overrideNames := make([]string, 0, len(overrides))
	for name := range overrides {
		overrideNames = append(overrideNames, name)
	}
	sort.Strings(overrideNames)

	environment := os.Environ()
	for _, name := range overrideNames {
		environment = append(environment, fmt.Sprintf(environmentEntryTemplateConstant, name, overrides[name]))
	}
	return environment
}

// resolveExitCode maps a Wait error to an exit code. A signal-terminated child reports -1.
func resolveExitCode(waitError error) (int, error) {
	if waitError == nil {
		return 0, nil
	}
	var exitError *exec.ExitError
	if errors.As(waitError, &exitError) {
		return exitError.ExitCode(), nil
	}
	return 0, waitError
}
