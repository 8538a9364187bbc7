package migrate_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/cwrdd/cwrdd-make/internal/migrate"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
	"github.com/cwrdd/cwrdd-make/internal/workspace/workspacetest"
)

func TestCommandBuilderWiresEveryMigrationCommand(testInstance *testing.T) {
	testCases := []struct {
		name                string
		build               func(*migrate.CommandBuilder) (*cobra.Command, error)
		expectedUse         string
		expectedCommandLine string
	}{
		{name: "apply", build: (*migrate.CommandBuilder).Build, expectedUse: "migrate", expectedCommandLine: "liquibase update"},
		{name: "status", build: (*migrate.CommandBuilder).BuildStatus, expectedUse: "migrate-status", expectedCommandLine: "liquibase status --verbose"},
		{name: "rollback", build: (*migrate.CommandBuilder).BuildRollback, expectedUse: "rollback", expectedCommandLine: "liquibase rollbackCount 1"},
		{name: "seed", build: (*migrate.CommandBuilder).BuildSeed, expectedUse: "seed", expectedCommandLine: "psql -h db.internal -U cwrdd_user -d cwrdd_dev -f "},
		{name: "diff", build: (*migrate.CommandBuilder).BuildDiff, expectedUse: "migrate-diff", expectedCommandLine: "liquibase diffChangeLog --changeLogFile migrations/"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			repositoryRoot := testInstance.TempDir()
			layout, layoutError := workspace.NewLayout(repositoryRoot)
			require.NoError(testInstance, layoutError)
			writeFile(testInstance, filepath.Join(layout.SchemaDirectory(), "01-users.sql"), "CREATE TABLE users();")
			writeFile(testInstance, layout.SeedScriptPath(), "SELECT 1;")
			writeFile(testInstance, layout.LiquibasePropertiesPath(), testPropertiesContentConstant)

			executor := &workspacetest.RecordingTaskExecutor{}
			builder := &migrate.CommandBuilder{
				CommandDependencies: workspace.CommandDependencies{
					ConfigurationProvider: func() workspace.Configuration {
						return workspace.Configuration{RepositoryPath: repositoryRoot}
					},
					TaskExecutor:       executor,
					InspectionExecutor: &workspacetest.ScriptedInspectionExecutor{},
					ToolLocator:        workspacetest.Locator("liquibase"),
				},
				DatabaseConfigurationProvider: func() migrate.DatabaseConfiguration {
					return migrate.DatabaseConfiguration{Host: "db.internal"}
				},
			}

			command, buildError := testCase.build(builder)
			require.NoError(testInstance, buildError)
			require.Equal(testInstance, testCase.expectedUse, command.Use)
			command.SetOut(&bytes.Buffer{})
			command.SetErr(&bytes.Buffer{})
			command.SetContext(context.Background())

			require.NoError(testInstance, command.RunE(command, nil))
			require.Len(testInstance, executor.Tasks, 1)
			require.Contains(testInstance, executor.CommandLines()[0], testCase.expectedCommandLine)
		})
	}
}
