package taskrunner

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/internal/utils"
)

// RelayLinePrefix indents relayed child output beneath the task announcement.
const RelayLinePrefix = "   "

// DependenciesConfig captures providers required to build task execution collaborators.
type DependenciesConfig struct {
	LoggerProvider               func() *zap.Logger
	HumanReadableLoggingProvider func() bool
	StreamingRunner              execshell.CommandRunner
	CapturingRunner              execshell.CommandRunner
}

// DependenciesOptions allows per-command overrides when resolving collaborators.
type DependenciesOptions struct {
	Command *cobra.Command
	Output  io.Writer
	Errors  io.Writer
}

// DependenciesResult exposes the resolved task runner and the capturing executor used for inspections.
type DependenciesResult struct {
	Runner        *Runner
	InspectionExecutor *execshell.ShellExecutor
	Output        io.Writer
	Errors        io.Writer
}

// BuildDependencies wires a Runner that streams child output to the command's writers and
// a ShellExecutor that captures output for commands whose results are inspected.
func BuildDependencies(config DependenciesConfig, options DependenciesOptions) (DependenciesResult, error) {
	logger := resolveLogger(config.LoggerProvider)
	humanReadable := false
	if config.HumanReadableLoggingProvider != nil {
		humanReadable = config.HumanReadableLoggingProvider()
	}

	outputWriter := resolveWriter(options.Output, options.Command, true)
	errorWriter := resolveWriter(options.Errors, options.Command, false)

	streamingRunner := config.StreamingRunner
	if streamingRunner == nil {
		streamingRunner = execshell.NewStreamingCommandRunner(utils.NewFlushingWriter(outputWriter), utils.NewFlushingWriter(errorWriter), RelayLinePrefix)
	}
	streamingExecutor, streamingExecutorError := execshell.NewShellExecutor(logger, streamingRunner, humanReadable)
	if streamingExecutorError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.streaming_executor: %w", streamingExecutorError)
	}

	runner, runnerError := NewRunner(streamingExecutor, outputWriter)
	if runnerError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.runner: %w", runnerError)
	}

	capturingRunner := config.CapturingRunner
	if capturingRunner == nil {
		capturingRunner = execshell.NewCapturingCommandRunner()
	}
	inspectionExecutor, inspectionExecutorError := execshell.NewShellExecutor(logger, capturingRunner, humanReadable)
	if inspectionExecutorError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.inspection_executor: %w", inspectionExecutorError)
	}

	return DependenciesResult{
		Runner:             runner,
		InspectionExecutor: inspectionExecutor,
		Output:             outputWriter,
		Errors:             errorWriter,
	}, nil
}

func resolveLogger(provider func() *zap.Logger) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveWriter(provided io.Writer, command *cobra.Command, useStdout bool) io.Writer {
	if provided != nil {
		return provided
	}
	if command != nil {
		if useStdout {
			if writer := command.OutOrStdout(); writer != nil && writer != io.Discard {
				return writer
			}
		} else {
			if writer := command.ErrOrStderr(); writer != nil && writer != io.Discard {
				return writer
			}
		}
	}
	if useStdout {
		return os.Stdout
	}
	return os.Stderr
}
