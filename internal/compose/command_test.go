package compose_test

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/cwrdd/cwrdd-make/internal/compose"
	"github.com/cwrdd/cwrdd-make/internal/migrate"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
	"github.com/cwrdd/cwrdd-make/internal/workspace/workspacetest"
)

func newCommandBuilder(testInstance *testing.T, executor *workspacetest.RecordingTaskExecutor) (*compose.CommandBuilder, workspace.Layout) {
	testInstance.Helper()
	repositoryRoot := testInstance.TempDir()
	layout, layoutError := workspace.NewLayout(repositoryRoot)
	require.NoError(testInstance, layoutError)

	builder := &compose.CommandBuilder{
		CommandDependencies: workspace.CommandDependencies{
			ConfigurationProvider: func() workspace.Configuration {
				return workspace.Configuration{RepositoryPath: repositoryRoot}
			},
			TaskExecutor:       executor,
			InspectionExecutor: &workspacetest.ScriptedInspectionExecutor{},
			ToolLocator:        workspacetest.Locator("podman-compose", "go", "liquibase"),
		},
		ComposeConfigurationProvider: func() compose.Configuration {
			return compose.Configuration{Image: "cwrdd-app:test", ReadinessAttempts: 1}
		},
		DatabaseConfigurationProvider: func() migrate.DatabaseConfiguration {
			return migrate.DatabaseConfiguration{Name: "cwrdd_test"}
		},
		Wait: func(context.Context, time.Duration) error { return nil },
	}
	return builder, layout
}

func runCommand(testInstance *testing.T, command *cobra.Command, arguments ...string) error {
	testInstance.Helper()
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	command.SetArgs(arguments)
	return command.ExecuteContext(context.Background())
}

func TestUpCommandRunsWorkflow(testInstance *testing.T) {
	executor := &workspacetest.RecordingTaskExecutor{}
	builder, layout := newCommandBuilder(testInstance, executor)
	require.NoError(testInstance, os.MkdirAll(layout.ApplicationDirectory(), 0o755))
	require.NoError(testInstance, os.MkdirAll(layout.DatabaseDirectory(), 0o755))

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	require.Equal(testInstance, "up", command.Use)
	require.NoError(testInstance, runCommand(testInstance, command, "--recreate"))

	require.Equal(testInstance, []string{
		"go build ./...",
		"podman build -t cwrdd-app:test .",
		"podman-compose up -d --force-recreate",
	}, executor.CommandLines()[1:])
	require.Contains(testInstance, executor.CommandLines()[0], "openssl req -x509")
}

func TestDownCommand(testInstance *testing.T) {
	executor := &workspacetest.RecordingTaskExecutor{}
	builder, _ := newCommandBuilder(testInstance, executor)

	command, buildError := builder.BuildDown()
	require.NoError(testInstance, buildError)
	require.NoError(testInstance, runCommand(testInstance, command))
	require.Equal(testInstance, []string{"podman-compose down"}, executor.CommandLines())
	require.Error(testInstance, runCommand(testInstance, command, "extra"))
}

func TestLogsCommandParsesServiceAndFollow(testInstance *testing.T) {
	testCases := []struct {
		name                string
		arguments           []string
		expectedCommandLine string
	}{
		{name: "all", expectedCommandLine: "podman-compose logs"},
		{name: "service", arguments: []string{"postgres"}, expectedCommandLine: "podman-compose logs postgres"},
		{name: "follow_shorthand", arguments: []string{"-f", "app"}, expectedCommandLine: "podman-compose logs -f app"},
		{name: "follow_long", arguments: []string{"--follow"}, expectedCommandLine: "podman-compose logs -f"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &workspacetest.RecordingTaskExecutor{}
			builder, _ := newCommandBuilder(testInstance, executor)
			command, buildError := builder.BuildLogs()
			require.NoError(testInstance, buildError)

			require.NoError(testInstance, runCommand(testInstance, command, testCase.arguments...))
			require.Equal(testInstance, []string{testCase.expectedCommandLine}, executor.CommandLines())
		})
	}
}

func TestLogsCommandRejectsMultipleServices(testInstance *testing.T) {
	executor := &workspacetest.RecordingTaskExecutor{}
	builder, _ := newCommandBuilder(testInstance, executor)
	command, buildError := builder.BuildLogs()
	require.NoError(testInstance, buildError)

	require.Error(testInstance, runCommand(testInstance, command, "app", "postgres"))
	require.Empty(testInstance, executor.Tasks)
}
