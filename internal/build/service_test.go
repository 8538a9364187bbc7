package build_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwrdd/cwrdd-make/internal/build"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
	"github.com/cwrdd/cwrdd-make/internal/workspace/workspacetest"
	"github.com/cwrdd/cwrdd-make/pkg/taskrunner"
)

func newLayout(testInstance *testing.T, createApplication bool) workspace.Layout {
	testInstance.Helper()
	repositoryRoot := testInstance.TempDir()
	if createApplication {
		require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryRoot, "app"), 0o755))
	}
	layout, layoutError := workspace.NewLayout(repositoryRoot)
	require.NoError(testInstance, layoutError)
	return layout
}

func TestBuildRunsGoBuildInApplicationDirectory(testInstance *testing.T) {
	layout := newLayout(testInstance, true)
	executor := &workspacetest.RecordingTaskExecutor{}
	outputBuffer := &bytes.Buffer{}

	service, serviceError := build.NewService(build.Dependencies{
		Layout:       layout,
		TaskExecutor: executor,
		ToolLocator:  workspacetest.Locator("go"),
		Output:       outputBuffer,
	})
	require.NoError(testInstance, serviceError)

	require.NoError(testInstance, service.Build(context.Background()))
	require.Equal(testInstance, []string{"go build ./..."}, executor.CommandLines())
	require.Equal(testInstance, layout.ApplicationDirectory(), executor.Tasks[0].WorkingDirectory())
	require.Contains(testInstance, outputBuffer.String(), "🎉 Build completed successfully!")
	require.Contains(testInstance, outputBuffer.String(), "App path: "+layout.ApplicationDirectory())
}

func TestBuildFailures(testInstance *testing.T) {
	testCases := []struct {
		name              string
		createApplication bool
		installedTools    []string
		failures          map[string]error
		assertError       func(*testing.T, error)
	}{
		{
			name:              "go_missing",
			createApplication: true,
			assertError: func(testInstance *testing.T, buildError error) {
				require.ErrorIs(testInstance, buildError, workspace.ErrToolMissing)
				require.Contains(testInstance, buildError.Error(), "https://go.dev/dl/")
			},
		},
		{
			name:           "application_directory_missing",
			installedTools: []string{"go"},
			assertError: func(testInstance *testing.T, buildError error) {
				require.ErrorIs(testInstance, buildError, taskrunner.ErrDirectoryNotFound)
			},
		},
		{
			name:              "compiler_failure_propagates",
			createApplication: true,
			installedTools:    []string{"go"},
			failures:          map[string]error{"go build": &taskrunner.ExitError{TaskName: "go build", ExitCode: 2}},
			assertError: func(testInstance *testing.T, buildError error) {
				exitCode, found := taskrunner.ExitCodeOf(buildError)
				require.True(testInstance, found)
				require.Equal(testInstance, 2, exitCode)
			},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &workspacetest.RecordingTaskExecutor{Failures: testCase.failures}
			service, serviceError := build.NewService(build.Dependencies{
				Layout:       newLayout(testInstance, testCase.createApplication),
				TaskExecutor: executor,
				ToolLocator:  workspacetest.Locator(testCase.installedTools...),
			})
			require.NoError(testInstance, serviceError)

			buildError := service.Build(context.Background())
			require.Error(testInstance, buildError)
			testCase.assertError(testInstance, buildError)
		})
	}
}

func TestTestSelectsRunner(testInstance *testing.T) {
	testCases := []struct {
		name                string
		installedTools      []string
		expectedCommandLine string
		expectWarning       bool
	}{
		{
			name:                "gotestsum_available",
			installedTools:      []string{"go", "gotestsum"},
			expectedCommandLine: "gotestsum --format testname -- ./...",
		},
		{
			name:                "go_test_fallback",
			installedTools:      []string{"go"},
			expectedCommandLine: "go test ./...",
			expectWarning:       true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			layout := newLayout(testInstance, true)
			executor := &workspacetest.RecordingTaskExecutor{}
			outputBuffer := &bytes.Buffer{}
			service, serviceError := build.NewService(build.Dependencies{
				Layout:       layout,
				TaskExecutor: executor,
				ToolLocator:  workspacetest.Locator(testCase.installedTools...),
				Output:       outputBuffer,
			})
			require.NoError(testInstance, serviceError)

			require.NoError(testInstance, service.Test(context.Background()))
			require.Equal(testInstance, []string{testCase.expectedCommandLine}, executor.CommandLines())
			require.Equal(testInstance, layout.ApplicationDirectory(), executor.Tasks[0].WorkingDirectory())
			require.Equal(testInstance, testCase.expectWarning, bytes.Contains(outputBuffer.Bytes(), []byte("gotestsum not found")))
			require.Contains(testInstance, outputBuffer.String(), "🎉 All tests passed!")
		})
	}
}

func TestNewServiceRequiresExecutor(testInstance *testing.T) {
	_, serviceError := build.NewService(build.Dependencies{})
	require.ErrorIs(testInstance, serviceError, build.ErrTaskExecutorNotConfigured)
}
