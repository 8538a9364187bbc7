package taskrunner_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/pkg/taskrunner"
)

const (
	testMissingExecutableConstant = "definitely-not-a-real-command-xyz"
	testEchoTaskNameConstant      = "echo test"
	testFailTaskNameConstant      = "fail"
)

type synchronizedBuffer struct {
	mutex  sync.Mutex
	buffer bytes.Buffer
}

func (writer *synchronizedBuffer) Write(data []byte) (int, error) {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()
	return writer.buffer.Write(data)
}

func (writer *synchronizedBuffer) String() string {
	writer.mutex.Lock()
	defer writer.mutex.Unlock()
	return writer.buffer.String()
}

type runnerFixture struct {
	runner         *taskrunner.Runner
	standardOutput *synchronizedBuffer
	standardError  *synchronizedBuffer
}

func newRunnerFixture(testInstance *testing.T) runnerFixture {
	testInstance.Helper()
	standardOutput := &synchronizedBuffer{}
	standardError := &synchronizedBuffer{}

	dependencies, dependenciesError := taskrunner.BuildDependencies(
		taskrunner.DependenciesConfig{LoggerProvider: func() *zap.Logger { return zap.NewNop() }},
		taskrunner.DependenciesOptions{Output: standardOutput, Errors: standardError},
	)
	require.NoError(testInstance, dependenciesError)

	return runnerFixture{runner: dependencies.Runner, standardOutput: standardOutput, standardError: standardError}
}

func buildTask(testInstance *testing.T, builder taskrunner.TaskBuilder) taskrunner.Task {
	testInstance.Helper()
	task, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	return task
}

type recordingExecutor struct {
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (executor *recordingExecutor) Execute(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.recordedCommands = append(executor.recordedCommands, command)
	return execshell.ExecutionResult{}, executor.executionError
}

func TestRunnerExecuteEchoRelaysOutput(testInstance *testing.T) {
	fixture := newRunnerFixture(testInstance)
	task := buildTask(testInstance, taskrunner.NewTaskBuilder(testEchoTaskNameConstant, "echo").WithArguments("hello", "world"))

	executionError := fixture.runner.Execute(context.Background(), task)
	require.NoError(testInstance, executionError)

	require.Equal(
		testInstance,
		"🔧 Running: echo test\n   Command: echo hello world\n   hello world\n✅ echo test: completed successfully\n\n",
		fixture.standardOutput.String(),
	)
	require.Empty(testInstance, fixture.standardError.String())
}

func TestRunnerExecuteReportsExitCodes(testInstance *testing.T) {
	testCases := []struct {
		name             string
		script           string
		expectedExitCode int
	}{
		{name: "exit_three", script: "exit 3", expectedExitCode: 3},
		{name: "exit_one", script: "echo failing >&2; exit 1", expectedExitCode: 1},
		{name: "signal", script: "kill -9 $$", expectedExitCode: taskrunner.SignalExitCode},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newRunnerFixture(testInstance)
			task := buildTask(testInstance, taskrunner.NewTaskBuilder(testFailTaskNameConstant, "sh").WithArguments("-c", testCase.script))

			executionError := fixture.runner.Execute(context.Background(), task)
			require.Error(testInstance, executionError)

			var exitError *taskrunner.ExitError
			require.True(testInstance, errors.As(executionError, &exitError))
			require.Equal(testInstance, testFailTaskNameConstant, exitError.TaskName)
			require.Equal(testInstance, testCase.expectedExitCode, exitError.ExitCode)

			exitCode, exitCodeAvailable := taskrunner.ExitCodeOf(executionError)
			require.True(testInstance, exitCodeAvailable)
			require.Equal(testInstance, testCase.expectedExitCode, exitCode)
			require.NotContains(testInstance, fixture.standardOutput.String(), "completed successfully")
		})
	}
}

func TestRunnerExecuteReportsSpawnFailureWithoutRelay(testInstance *testing.T) {
	fixture := newRunnerFixture(testInstance)
	task := buildTask(testInstance, taskrunner.NewTaskBuilder("missing", testMissingExecutableConstant).WithArguments("--flag"))

	executionError := fixture.runner.Execute(context.Background(), task)
	require.Error(testInstance, executionError)

	var spawnError *taskrunner.SpawnError
	require.True(testInstance, errors.As(executionError, &spawnError))
	require.Equal(testInstance, "missing", spawnError.TaskName)
	require.Equal(testInstance, testMissingExecutableConstant, spawnError.Executable)
	require.NotNil(testInstance, spawnError.Cause)

	_, exitCodeAvailable := taskrunner.ExitCodeOf(executionError)
	require.False(testInstance, exitCodeAvailable)

	require.Equal(testInstance, "🔧 Running: missing\n   Command: "+testMissingExecutableConstant+" --flag\n", fixture.standardOutput.String())
	require.Empty(testInstance, fixture.standardError.String())
}

func TestRunnerExecuteRelaysExactLineCounts(testInstance *testing.T) {
	fixture := newRunnerFixture(testInstance)
	script := "i=0; while [ $i -lt 250 ]; do echo out-$i; if [ $((i % 2)) -eq 0 ]; then echo err-$i >&2; fi; i=$((i+1)); done"
	task := buildTask(testInstance, taskrunner.NewTaskBuilder("lines", "sh").WithArguments("-c", script))

	require.NoError(testInstance, fixture.runner.Execute(context.Background(), task))

	relayedStandardOutput := 0
	for _, line := range strings.Split(fixture.standardOutput.String(), "\n") {
		if strings.HasPrefix(line, "   out-") {
			relayedStandardOutput++
		}
	}
	standardErrorLines := strings.Split(strings.TrimSuffix(fixture.standardError.String(), "\n"), "\n")

	require.Equal(testInstance, 250, relayedStandardOutput)
	require.Len(testInstance, standardErrorLines, 125)
	for _, line := range standardErrorLines {
		require.True(testInstance, strings.HasPrefix(line, "   err-"))
	}
}

func TestRunnerExecuteAnnouncesWorkingDirectoryAndAppliesEnvironment(testInstance *testing.T) {
	fixture := newRunnerFixture(testInstance)
	workingDirectory := testInstance.TempDir()

	task := buildTask(testInstance, taskrunner.NewTaskBuilder("environment", "sh").
		WithArguments("-c", "echo $CWRDD_TASK_VALUE").
		WithWorkingDirectory(workingDirectory).
		WithEnvironment("CWRDD_TASK_VALUE", "first").
		WithEnvironment("CWRDD_TASK_VALUE", "second"))

	require.NoError(testInstance, fixture.runner.Execute(context.Background(), task))
	require.Contains(testInstance, fixture.standardOutput.String(), "   Working directory: "+workingDirectory+"\n")
	require.Contains(testInstance, fixture.standardOutput.String(), "   second\n")
}

func TestRunnerRunTasksStopsAtFirstFailure(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		executorErrors       []error
		expectedCommandCount int
		expectError          bool
	}{
		{name: "empty_list", expectedCommandCount: 0},
		{name: "all_succeed", executorErrors: []error{nil, nil, nil}, expectedCommandCount: 3},
		{
			name: "second_fails",
			executorErrors: []error{
				nil,
				execshell.CommandFailedError{Result: execshell.ExecutionResult{ExitCode: 2}},
				nil,
			},
			expectedCommandCount: 2,
			expectError:          true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &sequencedExecutor{errors: testCase.executorErrors}
			runner, runnerError := taskrunner.NewRunner(executor, &bytes.Buffer{})
			require.NoError(testInstance, runnerError)

			tasks := make([]taskrunner.Task, 0, len(testCase.executorErrors))
			for index := range testCase.executorErrors {
				tasks = append(tasks, buildTask(testInstance, taskrunner.NewTaskBuilder("", "step").WithArguments(string(rune('a'+index)))))
			}

			runError := runner.RunTasks(context.Background(), tasks)
			require.Len(testInstance, executor.recordedCommands, testCase.expectedCommandCount)
			if !testCase.expectError {
				require.NoError(testInstance, runError)
				return
			}
			exitCode, exitCodeAvailable := taskrunner.ExitCodeOf(runError)
			require.True(testInstance, exitCodeAvailable)
			require.Equal(testInstance, 2, exitCode)
			require.Equal(testInstance, []string{"b"}, executor.recordedCommands[1].Details.Arguments)
		})
	}
}

func TestRunnerRunTasksWithRealProcesses(testInstance *testing.T) {
	fixture := newRunnerFixture(testInstance)
	first := buildTask(testInstance, taskrunner.NewTaskBuilder("first", "echo").WithArguments("one"))
	second := buildTask(testInstance, taskrunner.NewTaskBuilder("second", "sh").WithArguments("-c", "exit 5"))
	third := buildTask(testInstance, taskrunner.NewTaskBuilder("third", "echo").WithArguments("never"))

	runError := fixture.runner.RunTasks(context.Background(), []taskrunner.Task{first, second, third})
	require.EqualError(testInstance, runError, `task "second" failed with exit code 5`)
	require.Contains(testInstance, fixture.standardOutput.String(), "   one\n")
	require.NotContains(testInstance, fixture.standardOutput.String(), "third")
	require.NotContains(testInstance, fixture.standardOutput.String(), "never")
}

func TestRunnerTranslatesUnexpectedExecutorErrors(testInstance *testing.T) {
	executor := &recordingExecutor{executionError: execshell.CommandExecutionError{Cause: errors.New("relay broke")}}
	runner, runnerError := taskrunner.NewRunner(executor, &bytes.Buffer{})
	require.NoError(testInstance, runnerError)

	task := buildTask(testInstance, taskrunner.NewTaskBuilder("broken", "tool"))
	executionError := runner.Execute(context.Background(), task)
	require.Error(testInstance, executionError)
	require.Contains(testInstance, executionError.Error(), `task "broken"`)

	var spawnError *taskrunner.SpawnError
	require.False(testInstance, errors.As(executionError, &spawnError))
	_, exitCodeAvailable := taskrunner.ExitCodeOf(executionError)
	require.False(testInstance, exitCodeAvailable)
}

func TestNewRunnerRequiresExecutor(testInstance *testing.T) {
	_, runnerError := taskrunner.NewRunner(nil, &bytes.Buffer{})
	require.ErrorIs(testInstance, runnerError, taskrunner.ErrCommandExecutorNotConfigured)
}

func TestRunnerRejectsZeroValueTask(testInstance *testing.T) {
	executor := &recordingExecutor{}
	runner, runnerError := taskrunner.NewRunner(executor, &bytes.Buffer{})
	require.NoError(testInstance, runnerError)

	executionError := runner.Execute(context.Background(), taskrunner.Task{})
	require.ErrorIs(testInstance, executionError, taskrunner.ErrExecutableMissing)
	require.Empty(testInstance, executor.recordedCommands)
}

type sequencedExecutor struct {
	errors           []error
	recordedCommands []execshell.ShellCommand
}

func (executor *sequencedExecutor) Execute(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	index := len(executor.recordedCommands)
	executor.recordedCommands = append(executor.recordedCommands, command)
	if index < len(executor.errors) {
		return execshell.ExecutionResult{}, executor.errors[index]
	}
	return execshell.ExecutionResult{}, nil
}
