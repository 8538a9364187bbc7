package workspace_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
	"github.com/cwrdd/cwrdd-make/pkg/taskrunner"
)

type stubTaskExecutor struct{}

func (stubTaskExecutor) Execute(context.Context, taskrunner.Task) error { return nil }

func (stubTaskExecutor) RunTasks(context.Context, []taskrunner.Task) error { return nil }

type stubInspectionExecutor struct{}

func (stubInspectionExecutor) Execute(context.Context, execshell.ShellCommand) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}

func TestResolveBuildsDefaults(testInstance *testing.T) {
	repositoryRoot := testInstance.TempDir()
	command := &cobra.Command{}
	outputBuffer := &bytes.Buffer{}
	errorBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(errorBuffer)

	resolved, resolveError := workspace.CommandDependencies{
		ConfigurationProvider: func() workspace.Configuration {
			return workspace.Configuration{RepositoryPath: repositoryRoot}
		},
	}.Resolve(command)
	require.NoError(testInstance, resolveError)

	require.Equal(testInstance, repositoryRoot, resolved.Layout.Root())
	require.IsType(testInstance, &taskrunner.Runner{}, resolved.TaskExecutor)
	require.IsType(testInstance, &execshell.ShellExecutor{}, resolved.InspectionExecutor)
	require.NotNil(testInstance, resolved.ToolLocator)
	require.NotNil(testInstance, resolved.Logger)
	require.Same(testInstance, outputBuffer, resolved.Output)
	require.Same(testInstance, errorBuffer, resolved.Errors)
}

func TestResolveKeepsOverrides(testInstance *testing.T) {
	locatorCalls := 0
	resolved, resolveError := workspace.CommandDependencies{
		ConfigurationProvider: func() workspace.Configuration {
			return workspace.Configuration{RepositoryPath: testInstance.TempDir()}
		},
		TaskExecutor:       stubTaskExecutor{},
		InspectionExecutor: stubInspectionExecutor{},
		ToolLocator: func(string) bool {
			locatorCalls++
			return true
		},
	}.Resolve(&cobra.Command{})
	require.NoError(testInstance, resolveError)

	require.IsType(testInstance, stubTaskExecutor{}, resolved.TaskExecutor)
	require.IsType(testInstance, stubInspectionExecutor{}, resolved.InspectionExecutor)
	require.True(testInstance, resolved.ToolLocator("go"))
	require.Equal(testInstance, 1, locatorCalls)
}
