package workspace_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
)

func TestLayoutDerivesWellKnownPaths(testInstance *testing.T) {
	repositoryRoot := testInstance.TempDir()
	layout, layoutError := workspace.NewLayout(repositoryRoot)
	require.NoError(testInstance, layoutError)

	testCases := []struct {
		name     string
		actual   string
		expected string
	}{
		{name: "root", actual: layout.Root(), expected: repositoryRoot},
		{name: "application", actual: layout.ApplicationDirectory(), expected: filepath.Join(repositoryRoot, "app")},
		{name: "database", actual: layout.DatabaseDirectory(), expected: filepath.Join(repositoryRoot, "db")},
		{name: "schema", actual: layout.SchemaDirectory(), expected: filepath.Join(repositoryRoot, "db", "schema")},
		{name: "migrations", actual: layout.MigrationsDirectory(), expected: filepath.Join(repositoryRoot, "db", "migrations")},
		{name: "seed", actual: layout.SeedScriptPath(), expected: filepath.Join(repositoryRoot, "db", "scripts", "seed-dev-data.sql")},
		{name: "properties", actual: layout.LiquibasePropertiesPath(), expected: filepath.Join(repositoryRoot, "db", "liquibase.properties")},
		{name: "certificates", actual: layout.CertificatesDirectory(), expected: filepath.Join(repositoryRoot, "config", "certs")},
		{name: "certificate", actual: layout.CertificatePath(), expected: filepath.Join(repositoryRoot, "config", "certs", "cert.pem")},
		{name: "key", actual: layout.PrivateKeyPath(), expected: filepath.Join(repositoryRoot, "config", "certs", "key.pem")},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, testCase.actual)
		})
	}
}

func TestLayoutExpandsHomeDirectory(testInstance *testing.T) {
	homeDirectory := testInstance.TempDir()
	testInstance.Setenv("HOME", homeDirectory)

	layout, layoutError := workspace.DefaultConfiguration().Layout()
	require.NoError(testInstance, layoutError)
	require.Equal(testInstance, filepath.Join(homeDirectory, "Projects", "cwrdd"), layout.Root())
}

func TestLayoutRejectsEmptyRoot(testInstance *testing.T) {
	_, layoutError := workspace.NewLayout("   ")
	require.ErrorIs(testInstance, layoutError, workspace.ErrRepositoryRootMissing)
}

func TestConfigurationSanitizeRestoresDefault(testInstance *testing.T) {
	sanitized := workspace.Configuration{RepositoryPath: "  "}.Sanitize()
	require.Equal(testInstance, workspace.DefaultRepositoryPathConstant, sanitized.RepositoryPath)

	trimmed := workspace.Configuration{RepositoryPath: " /srv/cwrdd "}.Sanitize()
	require.Equal(testInstance, "/srv/cwrdd", trimmed.RepositoryPath)
}

func TestRequireTool(testInstance *testing.T) {
	testCases := []struct {
		name            string
		available       bool
		remediation     string
		expectedMessage string
	}{
		{name: "available", available: true},
		{
			name:            "missing_default_remediation",
			expectedMessage: "up[podman-compose]: podman-compose is not installed.\nRun: cwrdd-make get-tools",
		},
		{
			name:            "missing_custom_remediation",
			remediation:     "Install it from https://podman.io",
			expectedMessage: "up[podman-compose]: podman-compose is not installed.\nInstall it from https://podman.io",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			locator := func(name string) bool {
				require.Equal(testInstance, "podman-compose", name)
				return testCase.available
			}
			requireError := workspace.RequireTool(locator, workspace.OperationComposeUp, execshell.CommandPodmanCompose, testCase.remediation)
			if testCase.available {
				require.NoError(testInstance, requireError)
				return
			}
			require.EqualError(testInstance, requireError, testCase.expectedMessage)
			require.ErrorIs(testInstance, requireError, workspace.ErrToolMissing)

			var operationError workspace.OperationError
			require.True(testInstance, errors.As(requireError, &operationError))
			require.Equal(testInstance, workspace.OperationComposeUp, operationError.Operation())
			require.Equal(testInstance, "podman-compose", operationError.Subject())
			require.Equal(testInstance, "tool_missing", operationError.Code())
		})
	}
}

func TestWrapRendersCause(testInstance *testing.T) {
	cause := errors.New("permission denied")
	wrapped := workspace.Wrap(workspace.OperationInstall, "", cause)
	require.EqualError(testInstance, wrapped, "install: permission denied")
	require.ErrorIs(testInstance, wrapped, cause)
	require.Empty(testInstance, wrapped.(workspace.OperationError).Code())
}
