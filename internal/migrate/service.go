package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
	"github.com/cwrdd/cwrdd-make/pkg/taskrunner"
)

const (
	// LiquibaseVersionConstant is the Liquibase release get-tools installs and migrations are tested against.
	LiquibaseVersionConstant = "4.29.2"
	// LiquibaseDownloadURLConstant is the release archive for LiquibaseVersionConstant.
	LiquibaseDownloadURLConstant = "https://github.com/liquibase/liquibase/releases/download/v" + LiquibaseVersionConstant + "/liquibase-" + LiquibaseVersionConstant + ".tar.gz"
)

const liquibaseRemediationTemplateConstant = `Please install it:

Option 1 - Download from official site:
  wget %s
  tar -xzf liquibase-%s.tar.gz
  sudo mv liquibase /usr/local/bin/

Option 2 - Use package manager:
  # On macOS
  brew install liquibase

  # On Ubuntu/Debian
  sudo apt-get install liquibase

  # On Fedora
  sudo dnf install liquibase

Option 3 - Use SDKMAN:
  sdk install liquibase

After installation, run this command again.`

const (
	diffBannerConstant                       = "🔍 Generating migration diff from schema files\n\n"
	applyBannerConstant                      = "🚀 Applying database migrations\n\n"
	statusBannerConstant                     = "📊 Checking migration status\n\n"
	rollbackBannerConstant                   = "⏪ Rolling back last migration\n\n"
	seedBannerConstant                       = "🌱 Seeding database with development data\n\n"
	databasePathTemplateConstant             = "Database path: %s\n\n"
	databasePathLineTemplateConstant         = "Database path: %s\n"
	schemaPathTemplateConstant               = "Schema path: %s\n\n"
	schemaFileCountTemplateConstant          = "Found %d schema file(s):\n"
	schemaFileTemplateConstant               = "  - %s\n"
	referenceDatabaseNoteConstant            = "⚠️  Note: This command requires a reference database.\n   You'll need to:\n   1. Have a PostgreSQL database running\n   2. Configure connection in db/liquibase.properties\n   3. Run this command to generate diff\n\n"
	diffGeneratedTemplateConstant            = "✅ Generated migration: %s\n"
	diffNextStepsTemplateConstant            = "\nNext steps:\n  1. Review the generated changeset:\n     cat db/%s\n  2. Apply the migration:\n     cwrdd-make migrate\n  3. Commit both schema and migration:\n     git add db/schema/ db/migrations/\n"
	diffFailureHintsTemplateConstant         = "\n❌ Error generating diff:\n   %v\n\nCommon issues:\n  - Database not running or not accessible\n  - Connection settings incorrect in liquibase.properties\n  - JDBC driver not available\n"
	diffFailedTemplateConstant               = "migration diff failed: %w"
	applyCompletedMessageConstant            = "✅ Migrations applied successfully!\n"
	rollbackWarningConstant                  = "⚠️  Warning: This will rollback the most recent changeset.\n   Make sure this is what you want to do!\n\n"
	rollbackCompletedMessageConstant         = "✅ Rollback completed successfully!\n"
	seedFileTemplateConstant                 = "Seed file: %s\n\n"
	seedConnectionTemplateConstant           = "Connecting to database: %s\nUser: %s\n\n"
	seedCompletedMessageConstant             = "✅ Database seeded successfully!\n"
	noSchemaFilesTemplateConstant            = "no schema files found in %s"
	seedFileMissingTemplateConstant          = "seed file not found: %s"
	schemaListErrorTemplateConstant          = "unable to list schema files in %s: %w"
	statusInspectionErrorTemplateConstant    = "unable to check migration status: %w"
	changesetTimestampLayoutConstant         = "20060102-150405"
	changesetFileTemplateConstant            = "migrations/%s-generated.xml"
	schemaFileExtensionConstant              = ".sql"
	diffTaskNameConstant                     = "liquibase diffChangeLog"
	applyTaskNameConstant                    = "liquibase update"
	statusTaskNameConstant                   = "liquibase status"
	rollbackTaskNameConstant                 = "liquibase rollback"
	seedTaskNameConstant                     = "psql seed"
	diffChangeLogCommandConstant             = "diffChangeLog"
	changeLogFileFlagConstant                = "--changeLogFile"
	updateCommandConstant                    = "update"
	statusCommandConstant                    = "status"
	verboseFlagConstant                      = "--verbose"
	rollbackCountCommandConstant             = "rollbackCount"
	rollbackCountValueConstant               = "1"
	changelogArgumentConstant                = "--changeLogFile=migrations/changelog.xml"
	driverArgumentConstant                   = "--driver=org.postgresql.Driver"
	urlArgumentPrefixConstant                = "--url="
	usernameArgumentPrefixConstant           = "--username="
	passwordArgumentPrefixConstant           = "--password="
	pendingChangesetsMarkerConstant          = "changesets have not been applied"
	outdatedDatabaseMarkerConstant           = "is not up to date"
	postgresPasswordVariableConstant         = "PGPASSWORD"
	psqlHostFlagConstant                     = "-h"
	psqlPortFlagConstant                     = "-p"
	psqlUserFlagConstant                     = "-U"
	psqlDatabaseFlagConstant                 = "-d"
	psqlFileFlagConstant                     = "-f"
	psqlTuplesOnlyFlagConstant               = "-t"
	psqlUnalignedFlagConstant                = "-A"
	psqlCommandFlagConstant                  = "-c"
	tableCountQueryConstant                  = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' AND table_name NOT IN ('databasechangelog', 'databasechangeloglock');"
	rowCountQueryConstant                    = "SELECT COALESCE(SUM(n_live_tup), 0) FROM pg_stat_user_tables WHERE schemaname = 'public' AND relname NOT IN ('databasechangelog', 'databasechangeloglock');"
	executorMissingMessageConstant           = "migration service task executor not configured"
	inspectionExecutorMissingMessageConstant = "migration service inspection executor not configured"
)

var (
	// ErrTaskExecutorNotConfigured indicates the service was constructed without a task executor.
	ErrTaskExecutorNotConfigured = errors.New(executorMissingMessageConstant)
	// ErrInspectionExecutorNotConfigured indicates the service was constructed without a inspection executor.
	ErrInspectionExecutorNotConfigured = errors.New(inspectionExecutorMissingMessageConstant)
)

// Dependencies describes the collaborators required by the migration service.
type Dependencies struct {
	Layout        workspace.Layout
	Database      DatabaseConfiguration
	TaskExecutor  workspace.TaskExecutor
	InspectionExecutor workspace.InspectionExecutor
	ToolLocator   workspace.ToolLocator
	Output        io.Writer
	Errors        io.Writer
	Clock         func() time.Time
}

// Service drives Liquibase schema migrations and psql seeding under <root>/db.
type Service struct {
	layout        workspace.Layout
	database      DatabaseConfiguration
	taskExecutor  workspace.TaskExecutor
	inspectionExecutor workspace.InspectionExecutor
	toolLocator   workspace.ToolLocator
	output        io.Writer
	errors        io.Writer
	clock         func() time.Time
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.TaskExecutor == nil {
		return nil, ErrTaskExecutorNotConfigured
	}
	if dependencies.InspectionExecutor == nil {
		return nil, ErrInspectionExecutorNotConfigured
	}
	service := &Service{
		layout:             dependencies.Layout,
		database:           dependencies.Database.Sanitize(),
		taskExecutor:       dependencies.TaskExecutor,
		inspectionExecutor: dependencies.InspectionExecutor,
		toolLocator:        workspace.ResolveToolLocator(dependencies.ToolLocator),
		output:             dependencies.Output,
		errors:             dependencies.Errors,
		clock:              dependencies.Clock,
	}
	if service.output == nil {
		service.output = io.Discard
	}
	if service.errors == nil {
		service.errors = io.Discard
	}
	if service.clock == nil {
		service.clock = time.Now
	}
	return service, nil
}

// LiquibaseRemediation describes how to install Liquibase.
func LiquibaseRemediation() string {
	return fmt.Sprintf(liquibaseRemediationTemplateConstant, LiquibaseDownloadURLConstant, LiquibaseVersionConstant)
}

// ChangesetFileName names a generated changeset relative to the db directory.
func ChangesetFileName(moment time.Time) string {
	return fmt.Sprintf(changesetFileTemplateConstant, moment.Format(changesetTimestampLayoutConstant))
}

// Diff generates a timestamped changeset from the difference between the reference database and the schema files.
func (service *Service) Diff(executionContext context.Context) error {
	fmt.Fprint(service.output, diffBannerConstant)

	databaseDirectory, preparationError := service.prepareLiquibase(workspace.OperationMigrateDiff)
	if preparationError != nil {
		return preparationError
	}
	schemaDirectory := service.layout.SchemaDirectory()
	if verifyError := taskrunner.VerifyDirectory(schemaDirectory); verifyError != nil {
		return verifyError
	}

	fmt.Fprintf(service.output, databasePathLineTemplateConstant, databaseDirectory)
	fmt.Fprintf(service.output, schemaPathTemplateConstant, schemaDirectory)

	schemaFiles, listError := listSchemaFiles(schemaDirectory)
	if listError != nil {
		return listError
	}
	if len(schemaFiles) == 0 {
		return workspace.WrapMessage(workspace.OperationMigrateDiff, schemaDirectory, workspace.ErrPrerequisiteMissing, fmt.Sprintf(noSchemaFilesTemplateConstant, schemaDirectory))
	}
	fmt.Fprintf(service.output, schemaFileCountTemplateConstant, len(schemaFiles))
	for _, schemaFile := range schemaFiles {
		fmt.Fprintf(service.output, schemaFileTemplateConstant, schemaFile)
	}
	fmt.Fprintln(service.output)

	changesetFile := ChangesetFileName(service.clock())
	fmt.Fprint(service.output, referenceDatabaseNoteConstant)

	diffTask, taskError := taskrunner.NewTaskBuilder(diffTaskNameConstant, string(execshell.CommandLiquibase)).
		WithArguments(diffChangeLogCommandConstant, changeLogFileFlagConstant, changesetFile).
		WithWorkingDirectory(databaseDirectory).
		Build()
	if taskError != nil {
		return taskError
	}

	if runError := service.taskExecutor.RunTasks(executionContext, []taskrunner.Task{diffTask}); runError != nil {
		fmt.Fprintf(service.errors, diffFailureHintsTemplateConstant, runError)
		return fmt.Errorf(diffFailedTemplateConstant, runError)
	}

	fmt.Fprintf(service.output, diffGeneratedTemplateConstant, changesetFile)
	fmt.Fprintf(service.output, diffNextStepsTemplateConstant, changesetFile)
	return nil
}

// Apply runs `liquibase update`.
func (service *Service) Apply(executionContext context.Context) error {
	fmt.Fprint(service.output, applyBannerConstant)
	if runError := service.runLiquibase(executionContext, workspace.OperationMigrate, applyTaskNameConstant, updateCommandConstant); runError != nil {
		return runError
	}
	fmt.Fprint(service.output, applyCompletedMessageConstant)
	return nil
}

// Status runs `liquibase status --verbose`.
func (service *Service) Status(executionContext context.Context) error {
	fmt.Fprint(service.output, statusBannerConstant)
	return service.runLiquibase(executionContext, workspace.OperationMigrateStatus, statusTaskNameConstant, statusCommandConstant, verboseFlagConstant)
}

// Rollback reverts the most recent changeset with `liquibase rollbackCount 1`.
func (service *Service) Rollback(executionContext context.Context) error {
	fmt.Fprint(service.output, rollbackBannerConstant)
	databaseDirectory, preparationError := service.prepareLiquibase(workspace.OperationRollback)
	if preparationError != nil {
		return preparationError
	}
	fmt.Fprintf(service.output, databasePathTemplateConstant, databaseDirectory)
	fmt.Fprint(service.output, rollbackWarningConstant)

	if runError := service.runLiquibaseIn(executionContext, databaseDirectory, rollbackTaskNameConstant, rollbackCountCommandConstant, rollbackCountValueConstant); runError != nil {
		return runError
	}
	fmt.Fprint(service.output, rollbackCompletedMessageConstant)
	return nil
}

// Seed loads db/scripts/seed-dev-data.sql with psql using the credentials in liquibase.properties.
func (service *Service) Seed(executionContext context.Context) error {
	fmt.Fprint(service.output, seedBannerConstant)

	databaseDirectory := service.layout.DatabaseDirectory()
	if verifyError := taskrunner.VerifyDirectory(databaseDirectory); verifyError != nil {
		return verifyError
	}

	seedScriptPath := service.layout.SeedScriptPath()
	if _, statError := os.Stat(seedScriptPath); statError != nil {
		return workspace.WrapMessage(workspace.OperationSeed, seedScriptPath, workspace.ErrPrerequisiteMissing, fmt.Sprintf(seedFileMissingTemplateConstant, seedScriptPath))
	}

	fmt.Fprintf(service.output, databasePathLineTemplateConstant, databaseDirectory)
	fmt.Fprintf(service.output, seedFileTemplateConstant, seedScriptPath)

	connection, connectionError := ReadConnectionProperties(service.layout.LiquibasePropertiesPath())
	if connectionError != nil {
		return connectionError
	}
	fmt.Fprintf(service.output, seedConnectionTemplateConstant, connection.DatabaseName, connection.Username)

	seedTask, taskError := taskrunner.NewTaskBuilder(seedTaskNameConstant, string(execshell.CommandPsql)).
		WithArguments(
			psqlHostFlagConstant, service.database.Host,
			psqlUserFlagConstant, connection.Username,
			psqlDatabaseFlagConstant, connection.DatabaseName,
			psqlFileFlagConstant, seedScriptPath,
		).
		WithEnvironment(postgresPasswordVariableConstant, connection.Password).
		WithWorkingDirectory(databaseDirectory).
		Build()
	if taskError != nil {
		return taskError
	}

	if runError := service.taskExecutor.RunTasks(executionContext, []taskrunner.Task{seedTask}); runError != nil {
		return runError
	}
	fmt.Fprint(service.output, seedCompletedMessageConstant)
	return nil
}

// PendingChanges reports whether `liquibase status` lists changesets that have not been applied.
// A non-zero status exit is still inspected; only a failure to run Liquibase is an error.
func (service *Service) PendingChanges(executionContext context.Context) (bool, error) {
	statusCommand := execshell.ShellCommand{
		Name: execshell.CommandLiquibase,
		Details: execshell.CommandDetails{
			Arguments: []string{
				changelogArgumentConstant,
				urlArgumentPrefixConstant + service.database.JDBCURL(),
				usernameArgumentPrefixConstant + service.database.User,
				passwordArgumentPrefixConstant + service.database.Password,
				driverArgumentConstant,
				statusCommandConstant,
				verboseFlagConstant,
			},
			WorkingDirectory: service.layout.DatabaseDirectory(),
		},
	}

	result, inspectionError := service.inspectionExecutor.Execute(executionContext, statusCommand)
	if inspectionError != nil {
		var failedError execshell.CommandFailedError
		if !errors.As(inspectionError, &failedError) {
			return false, fmt.Errorf(statusInspectionErrorTemplateConstant, inspectionError)
		}
		result = failedError.Result
	}

	return strings.Contains(result.StandardOutput, pendingChangesetsMarkerConstant) ||
		strings.Contains(result.StandardOutput, outdatedDatabaseMarkerConstant), nil
}

// SeedRequired reports whether the public schema has application tables that hold no rows.
// Any psql failure is treated as "no seed needed".
func (service *Service) SeedRequired(executionContext context.Context) bool {
	tableCount, tableCountError := service.queryCount(executionContext, tableCountQueryConstant)
	if tableCountError != nil || tableCount == 0 {
		return false
	}
	rowCount, rowCountError := service.queryCount(executionContext, rowCountQueryConstant)
	if rowCountError != nil {
		return false
	}
	return rowCount == 0
}

func (service *Service) queryCount(executionContext context.Context, query string) (int64, error) {
	result, inspectionError := service.inspectionExecutor.Execute(executionContext, execshell.ShellCommand{
		Name: execshell.CommandPsql,
		Details: execshell.CommandDetails{
			Arguments: []string{
				psqlHostFlagConstant, service.database.Host,
				psqlPortFlagConstant, strconv.Itoa(service.database.Port),
				psqlUserFlagConstant, service.database.User,
				psqlDatabaseFlagConstant, service.database.Name,
				psqlTuplesOnlyFlagConstant,
				psqlUnalignedFlagConstant,
				psqlCommandFlagConstant, query,
			},
			EnvironmentVariables: map[string]string{postgresPasswordVariableConstant: service.database.Password},
		},
	})
	if inspectionError != nil {
		return 0, inspectionError
	}
	return strconv.ParseInt(strings.TrimSpace(result.StandardOutput), 10, 64)
}

func (service *Service) runLiquibase(executionContext context.Context, operation workspace.Operation, taskName string, arguments ...string) error {
	databaseDirectory, preparationError := service.prepareLiquibase(operation)
	if preparationError != nil {
		return preparationError
	}
	fmt.Fprintf(service.output, databasePathTemplateConstant, databaseDirectory)
	return service.runLiquibaseIn(executionContext, databaseDirectory, taskName, arguments...)
}

func (service *Service) runLiquibaseIn(executionContext context.Context, databaseDirectory string, taskName string, arguments ...string) error {
	liquibaseTask, taskError := taskrunner.NewTaskBuilder(taskName, string(execshell.CommandLiquibase)).
		WithArguments(arguments...).
		WithWorkingDirectory(databaseDirectory).
		Build()
	if taskError != nil {
		return taskError
	}
	return service.taskExecutor.RunTasks(executionContext, []taskrunner.Task{liquibaseTask})
}

func (service *Service) prepareLiquibase(operation workspace.Operation) (string, error) {
	if requireError := workspace.RequireTool(service.toolLocator, operation, execshell.CommandLiquibase, LiquibaseRemediation()); requireError != nil {
		return "", requireError
	}
	databaseDirectory := service.layout.DatabaseDirectory()
	if verifyError := taskrunner.VerifyDirectory(databaseDirectory); verifyError != nil {
		return "", verifyError
	}
	return databaseDirectory, nil
}

func listSchemaFiles(schemaDirectory string) ([]string, error) {
	entries, readError := os.ReadDir(schemaDirectory)
	if readError != nil {
		return nil, fmt.Errorf(schemaListErrorTemplateConstant, schemaDirectory, readError)
	}
	schemaFiles := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != schemaFileExtensionConstant {
			continue
		}
		schemaFiles = append(schemaFiles, entry.Name())
	}
	return schemaFiles, nil
}
