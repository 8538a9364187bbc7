package tools_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/internal/tools"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
	"github.com/cwrdd/cwrdd-make/internal/workspace/workspacetest"
)

type serviceFixture struct {
	executor *workspacetest.RecordingTaskExecutor
	inspection    *workspacetest.ScriptedInspectionExecutor
	output   *bytes.Buffer
	logs     *observer.ObservedLogs
	service  *tools.Service
}

func newServiceFixture(testInstance *testing.T, platform tools.Platform, installedTools ...string) serviceFixture {
	testInstance.Helper()
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)
	fixture := serviceFixture{
		executor:   &workspacetest.RecordingTaskExecutor{},
		inspection: &workspacetest.ScriptedInspectionExecutor{Responses: map[string][]workspacetest.InspectionResponse{}},
		output:     &bytes.Buffer{},
		logs:       observedLogs,
	}
	service, serviceError := tools.NewService(tools.Dependencies{
		TaskExecutor:       fixture.executor,
		InspectionExecutor: fixture.inspection,
		ToolLocator:        workspacetest.Locator(installedTools...),
		Platform:           func() tools.Platform { return platform },
		Output:             fixture.output,
		Logger:             zap.New(observedCore),
	})
	require.NoError(testInstance, serviceError)
	fixture.service = service
	return fixture
}

func versionResponse(output string) []workspacetest.InspectionResponse {
	return []workspacetest.InspectionResponse{{Result: execshell.ExecutionResult{StandardOutput: output}}}
}

func TestNewServiceRequiresExecutors(testInstance *testing.T) {
	_, serviceError := tools.NewService(tools.Dependencies{InspectionExecutor: &workspacetest.ScriptedInspectionExecutor{}})
	require.ErrorIs(testInstance, serviceError, tools.ErrTaskExecutorNotConfigured)

	_, serviceError = tools.NewService(tools.Dependencies{TaskExecutor: &workspacetest.RecordingTaskExecutor{}})
	require.ErrorIs(testInstance, serviceError, tools.ErrInspectionExecutorNotConfigured)
}

func TestInstallReportsAlreadyInstalledTools(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, tools.PlatformUbuntu, "podman", "podman-compose", "liquibase", "psql", "gotestsum")

	require.NoError(testInstance, fixture.service.Install(context.Background()))
	require.Empty(testInstance, fixture.executor.Tasks)
	require.Contains(testInstance, fixture.output.String(), "Detected OS: ubuntu")
	require.Contains(testInstance, fixture.output.String(), "All tools already installed!")
	require.Empty(testInstance, fixture.inspection.Commands)
}

func TestInstallRunsDebianPlanAndReportsVersions(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, tools.PlatformDebian, "podman-compose", "liquibase", "psql", "gotestsum", "go")
	fixture.inspection.Responses["liquibase --version"] = versionResponse("Liquibase Version: 4.29.2\nLiquibase Open Source 4.29.2 by Liquibase\n")
	fixture.inspection.Responses["psql --version"] = versionResponse("psql (PostgreSQL) 16.4\n")

	require.NoError(testInstance, fixture.service.Install(context.Background()))
	require.Equal(testInstance, []string{
		"sudo apt update",
		"sudo apt install -y podman",
		"systemctl --user enable podman.socket",
		"systemctl --user start podman.socket",
	}, fixture.executor.CommandLines())

	output := fixture.output.String()
	require.Contains(testInstance, output, "Installing tools for Ubuntu/Debian")
	require.Contains(testInstance, output, "Configuring Podman socket")
	require.Contains(testInstance, output, "All tools installed successfully!")
	require.Contains(testInstance, output, "  Liquibase: Liquibase Version: 4.29.2\n")
	require.Contains(testInstance, output, "  PostgreSQL: psql (PostgreSQL) 16.4\n")
	require.NotContains(testInstance, output, "is older than")
	require.Equal(testInstance, 1, fixture.inspection.Count("podman-compose --version"))
	require.Zero(testInstance, fixture.inspection.Count("podman --version"))
}

func TestInstallToleratesSocketFailures(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, tools.PlatformUbuntu, "podman-compose", "liquibase", "psql", "gotestsum")
	fixture.executor.Failures = map[string]error{"enable podman socket": errors.New("no systemd")}

	require.NoError(testInstance, fixture.service.Install(context.Background()))
	require.Equal(testInstance, 1, fixture.logs.FilterMessage("podman socket configuration failed").Len())
	require.Contains(testInstance, fixture.output.String(), "All tools installed successfully!")
}

func TestInstallStopsAtFirstFailingTask(testInstance *testing.T) {
	installFailure := errors.New("apt failed")
	fixture := newServiceFixture(testInstance, tools.PlatformUbuntu, "go")
	fixture.executor.Failures = map[string]error{"install podman-compose": installFailure}

	require.ErrorIs(testInstance, fixture.service.Install(context.Background()), installFailure)
	require.Equal(testInstance, []string{
		"sudo apt update",
		"sudo apt install -y podman",
		"sudo apt install -y podman-compose",
	}, fixture.executor.CommandLines())
	require.NotContains(testInstance, fixture.output.String(), "All tools installed successfully!")
}

func TestInstallRunsMacOSPlan(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, tools.PlatformMacOS, "brew", "podman", "podman-compose", "psql", "gotestsum")

	require.NoError(testInstance, fixture.service.Install(context.Background()))
	require.Equal(testInstance, []string{"brew install liquibase"}, fixture.executor.CommandLines())
	require.Contains(testInstance, fixture.output.String(), "Installing tools for macOS")
}

func TestInstallWarnsWhenGoIsMissingForGotestsum(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, tools.PlatformUbuntu, "podman", "podman-compose", "liquibase", "psql")

	require.NoError(testInstance, fixture.service.Install(context.Background()))
	require.Empty(testInstance, fixture.executor.Tasks)
	require.Contains(testInstance, fixture.output.String(), "Go not found; skipping gotestsum")
	require.NotContains(testInstance, fixture.output.String(), "All tools already installed!")
}

func TestInstallRejectsUnsupportedPlatforms(testInstance *testing.T) {
	for _, platform := range []tools.Platform{tools.PlatformLinux, tools.PlatformUnknown} {
		testInstance.Run(string(platform), func(testInstance *testing.T) {
			fixture := newServiceFixture(testInstance, platform)
			installError := fixture.service.Install(context.Background())
			require.ErrorIs(testInstance, installError, workspace.ErrUnsupportedPlatform)
			require.Contains(testInstance, installError.Error(), "Unsupported OS: "+string(platform))
			require.Contains(testInstance, installError.Error(), "go install gotest.tools/gotestsum@latest")
			require.Empty(testInstance, fixture.executor.Tasks)
		})
	}
}

func TestReportVersionsWarnsAboutOutdatedLiquibase(testInstance *testing.T) {
	fixture := newServiceFixture(testInstance, tools.PlatformUbuntu, "liquibase", "podman")
	fixture.inspection.Responses["liquibase --version"] = versionResponse("\nLiquibase Version: 4.20.0\n")
	fixture.inspection.Responses["podman --version"] = []workspacetest.InspectionResponse{{Error: errors.New("broken")}}

	fixture.service.ReportVersions(context.Background())
	require.Contains(testInstance, fixture.output.String(), "  Liquibase: Liquibase Version: 4.20.0\n")
	require.Contains(testInstance, fixture.output.String(), "Liquibase 4.20.0 is older than the tested 4.29.2")
	require.NotContains(testInstance, fixture.output.String(), "Podman:")
	require.Equal(testInstance, 1, fixture.logs.FilterMessage("version inspection failed").Len())
}

func TestLiquibaseOutdated(testInstance *testing.T) {
	testCases := []struct {
		name             string
		output           string
		expectedVersion  string
		expectedOutdated bool
	}{
		{name: "older_minor", output: "Liquibase Version: 4.9.1", expectedVersion: "4.9.1", expectedOutdated: true},
		{name: "pinned", output: "Liquibase Version: 4.29.2", expectedVersion: "4.29.2"},
		{name: "newer_major", output: "Liquibase Version: 5.0.0", expectedVersion: "5.0.0"},
		{name: "older_patch", output: "Starting Liquibase (version 4.29.1 #1)", expectedVersion: "4.29.1", expectedOutdated: true},
		{name: "no_version", output: "liquibase: command output unavailable"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			version, outdated := tools.LiquibaseOutdated(testCase.output)
			require.Equal(testInstance, testCase.expectedVersion, version)
			require.Equal(testInstance, testCase.expectedOutdated, outdated)
		})
	}
}
