package compose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/internal/migrate"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
	"github.com/cwrdd/cwrdd-make/pkg/taskrunner"
)

const (
	upBannerConstant                   = "🚀 Starting local development environment\n\n"
	downBannerConstant                 = "🛑 Stopping local development environment\n\n"
	buildingApplicationMessageConstant = "🏗️  Building cwrdd application...\n"
	buildingImageMessageConstant       = "\n🐳 Building Docker image...\n"
	startingContainersMessageConstant  = "📦 Starting containers...\n"
	waitingForDatabaseMessageConstant  = "\n⏳ Waiting for PostgreSQL to be ready...\n"
	databaseReadyMessageConstant       = "✅ PostgreSQL is ready!\n\n"
	checkingMigrationsMessageConstant  = "🔍 Checking database migration status...\n"
	runningMigrationsMessageConstant   = "📝 Running database migrations...\n"
	databaseCurrentMessageConstant     = "✅ Database is up to date\n\n"
	checkingSeedMessageConstant        = "🔍 Checking if database needs seeding...\n"
	runningSeedMessageConstant         = "🌱 Seeding database with development data...\n"
	seedPresentMessageConstant         = "✅ Database already has seed data\n\n"
	environmentReadyMessageConstant    = "✅ Development environment is ready!\n\n"
	environmentStoppedMessageConstant  = "✅ Development environment stopped\n\n"
	databaseNotReadyMessageConstant    = "PostgreSQL did not become ready in time. Check logs with: podman-compose logs postgres"
	readinessAttemptFailedLogConstant  = "postgres readiness inspection failed"
	attemptFieldNameConstant           = "attempt"
	containerFieldNameConstant         = "container"
	imageBuildTaskNameConstant         = "docker build"
	composeUpTaskNameConstant          = "compose up"
	composeDownTaskNameConstant        = "compose down"
	composeLogsTaskNameConstant        = "compose logs"
	buildSubcommandConstant            = "build"
	tagFlagConstant                    = "-t"
	buildContextConstant               = "."
	upSubcommandConstant               = "up"
	detachFlagConstant                 = "-d"
	forceRecreateFlagConstant          = "--force-recreate"
	noRecreateFlagConstant             = "--no-recreate"
	downSubcommandConstant             = "down"
	logsSubcommandConstant             = "logs"
	followFlagConstant                 = "-f"
	execSubcommandConstant             = "exec"
	readinessInspectionCommandConstant = "pg_isready"
	readinessUserFlagConstant          = "-U"
	readinessDatabaseFlagConstant      = "-d"
	executorMissingMessageConstant     = "compose service task executor not configured"
	inspectionMissingMessageConstant   = "compose service inspection executor not configured"
	certificatesMissingMessageConstant = "compose service certificate provisioner not configured"
	builderMissingMessageConstant      = "compose service application builder not configured"
	migrationsMissingMessageConstant   = "compose service migration runner not configured"
)

const accessInformationTemplateConstant = `🌐 Access your services:
   cwrdd App:     https://localhost:8443
   PostgreSQL:    %s:%d (%s / %s / %s)
   Redis:         localhost:6379
   Grafana:       http://localhost:3000
   Prometheus:    http://localhost:9090
   Alloy:         http://localhost:12345

📊 Send telemetry to:
   OTLP gRPC:     localhost:4319
   OTLP HTTP:     localhost:4320

📝 Useful commands:
   View logs:     cwrdd-make logs [service]
   Stop all:      cwrdd-make down
`

var (
	// ErrTaskExecutorNotConfigured indicates the service was constructed without a task executor.
	ErrTaskExecutorNotConfigured = errors.New(executorMissingMessageConstant)
	// ErrInspectionExecutorNotConfigured indicates the service was constructed without a inspection executor.
	ErrInspectionExecutorNotConfigured = errors.New(inspectionMissingMessageConstant)
	// ErrCertificatesNotConfigured indicates the service was constructed without a certificate provisioner.
	ErrCertificatesNotConfigured = errors.New(certificatesMissingMessageConstant)
	// ErrBuilderNotConfigured indicates the service was constructed without an application builder.
	ErrBuilderNotConfigured = errors.New(builderMissingMessageConstant)
	// ErrMigrationsNotConfigured indicates the service was constructed without a migration runner.
	ErrMigrationsNotConfigured = errors.New(migrationsMissingMessageConstant)
)

// CertificateProvisioner ensures the development TLS certificate exists.
type CertificateProvisioner interface {
	Ensure(executionContext context.Context) error
}

// ApplicationBuilder compiles the application before its image is built.
type ApplicationBuilder interface {
	Build(executionContext context.Context) error
}

// MigrationRunner detects and applies pending migrations and seed data.
type MigrationRunner interface {
	Apply(executionContext context.Context) error
	Seed(executionContext context.Context) error
	PendingChanges(executionContext context.Context) (bool, error)
	SeedRequired(executionContext context.Context) bool
}

// WaitFunc blocks for the interval or until the context ends.
type WaitFunc func(executionContext context.Context, interval time.Duration) error

// Dependencies describes the collaborators required by the compose service.
type Dependencies struct {
	Layout        workspace.Layout
	Configuration Configuration
	Database      migrate.DatabaseConfiguration
	TaskExecutor  workspace.TaskExecutor
	InspectionExecutor workspace.InspectionExecutor
	ToolLocator   workspace.ToolLocator
	Certificates  CertificateProvisioner
	Builder       ApplicationBuilder
	Migrations    MigrationRunner
	Output        io.Writer
	Logger        *zap.Logger
	Wait          WaitFunc
}

// Service orchestrates the podman-compose development environment.
type Service struct {
	layout        workspace.Layout
	configuration Configuration
	database      migrate.DatabaseConfiguration
	taskExecutor  workspace.TaskExecutor
	inspectionExecutor workspace.InspectionExecutor
	toolLocator   workspace.ToolLocator
	certificates  CertificateProvisioner
	builder       ApplicationBuilder
	migrations    MigrationRunner
	output        io.Writer
	logger        *zap.Logger
	wait          WaitFunc
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	switch {
	case dependencies.TaskExecutor == nil:
		return nil, ErrTaskExecutorNotConfigured
	case dependencies.InspectionExecutor == nil:
		return nil, ErrInspectionExecutorNotConfigured
	case dependencies.Certificates == nil:
		return nil, ErrCertificatesNotConfigured
	case dependencies.Builder == nil:
		return nil, ErrBuilderNotConfigured
	case dependencies.Migrations == nil:
		return nil, ErrMigrationsNotConfigured
	}

	service := &Service{
		layout:             dependencies.Layout,
		configuration:      dependencies.Configuration.Sanitize(),
		database:           dependencies.Database.Sanitize(),
		taskExecutor:       dependencies.TaskExecutor,
		inspectionExecutor: dependencies.InspectionExecutor,
		toolLocator:        workspace.ResolveToolLocator(dependencies.ToolLocator),
		certificates:       dependencies.Certificates,
		builder:            dependencies.Builder,
		migrations:         dependencies.Migrations,
		output:             dependencies.Output,
		logger:             dependencies.Logger,
		wait:               dependencies.Wait,
	}
	if service.output == nil {
		service.output = io.Discard
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	if service.wait == nil {
		service.wait = SleepContext
	}
	return service, nil
}

// SleepContext waits for interval, returning early with the context error when the context ends first.
func SleepContext(executionContext context.Context, interval time.Duration) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-executionContext.Done():
		return executionContext.Err()
	case <-timer.C:
		return nil
	}
}

// Up builds the application image, starts the containers, waits for PostgreSQL, and brings the schema and seed data up to date.
func (service *Service) Up(executionContext context.Context, recreate bool) error {
	fmt.Fprint(service.output, upBannerConstant)

	if requireError := service.requireCompose(workspace.OperationComposeUp); requireError != nil {
		return requireError
	}
	if ensureError := service.certificates.Ensure(executionContext); ensureError != nil {
		return ensureError
	}

	fmt.Fprint(service.output, buildingApplicationMessageConstant)
	if buildError := service.builder.Build(executionContext); buildError != nil {
		return buildError
	}

	fmt.Fprint(service.output, buildingImageMessageConstant)
	imageTask, imageTaskError := taskrunner.NewTaskBuilder(imageBuildTaskNameConstant, string(execshell.CommandPodman)).
		WithArguments(buildSubcommandConstant, tagFlagConstant, service.configuration.Image, buildContextConstant).
		WithWorkingDirectory(service.layout.ApplicationDirectory()).
		Build()
	if imageTaskError != nil {
		return imageTaskError
	}
	if runError := service.taskExecutor.RunTasks(executionContext, []taskrunner.Task{imageTask}); runError != nil {
		return runError
	}

	fmt.Fprint(service.output, startingContainersMessageConstant)
	upTask, upTaskError := service.composeTask(composeUpTaskNameConstant, UpArguments(recreate)...)
	if upTaskError != nil {
		return upTaskError
	}
	if runError := service.taskExecutor.RunTasks(executionContext, []taskrunner.Task{upTask}); runError != nil {
		return runError
	}

	fmt.Fprint(service.output, waitingForDatabaseMessageConstant)
	if readinessError := service.awaitDatabase(executionContext); readinessError != nil {
		return readinessError
	}
	fmt.Fprint(service.output, databaseReadyMessageConstant)

	fmt.Fprint(service.output, checkingMigrationsMessageConstant)
	pending, pendingError := service.migrations.PendingChanges(executionContext)
	if pendingError != nil {
		return pendingError
	}
	if pending {
		fmt.Fprint(service.output, runningMigrationsMessageConstant)
		if applyError := service.migrations.Apply(executionContext); applyError != nil {
			return applyError
		}
	} else {
		fmt.Fprint(service.output, databaseCurrentMessageConstant)
	}

	fmt.Fprint(service.output, checkingSeedMessageConstant)
	if service.migrations.SeedRequired(executionContext) {
		fmt.Fprint(service.output, runningSeedMessageConstant)
		if seedError := service.migrations.Seed(executionContext); seedError != nil {
			return seedError
		}
	} else {
		fmt.Fprint(service.output, seedPresentMessageConstant)
	}

	fmt.Fprint(service.output, environmentReadyMessageConstant)
	fmt.Fprintf(service.output, accessInformationTemplateConstant, service.database.Host, service.database.Port, service.database.Name, service.database.User, service.database.Password)
	return nil
}

// Down stops and removes the compose containers.
func (service *Service) Down(executionContext context.Context) error {
	fmt.Fprint(service.output, downBannerConstant)

	if requireError := service.requireCompose(workspace.OperationComposeDown); requireError != nil {
		return requireError
	}
	downTask, taskError := service.composeTask(composeDownTaskNameConstant, downSubcommandConstant)
	if taskError != nil {
		return taskError
	}
	if runError := service.taskExecutor.RunTasks(executionContext, []taskrunner.Task{downTask}); runError != nil {
		return runError
	}

	fmt.Fprint(service.output, environmentStoppedMessageConstant)
	return nil
}

// Logs relays podman-compose logs, optionally for a single service and following new output.
func (service *Service) Logs(executionContext context.Context, serviceName string, follow bool) error {
	if requireError := service.requireCompose(workspace.OperationComposeLogs); requireError != nil {
		return requireError
	}
	logsTask, taskError := service.composeTask(composeLogsTaskNameConstant, LogsArguments(serviceName, follow)...)
	if taskError != nil {
		return taskError
	}
	return service.taskExecutor.RunTasks(executionContext, []taskrunner.Task{logsTask})
}

// UpArguments returns the podman-compose arguments that start the environment in the background.
func UpArguments(recreate bool) []string {
	recreateFlag := noRecreateFlagConstant
	if recreate {
		recreateFlag = forceRecreateFlagConstant
	}
	return []string{upSubcommandConstant, detachFlagConstant, recreateFlag}
}

// LogsArguments returns the podman-compose arguments for the logs command.
func LogsArguments(serviceName string, follow bool) []string {
	arguments := []string{logsSubcommandConstant}
	if follow {
		arguments = append(arguments, followFlagConstant)
	}
	if len(serviceName) > 0 {
		arguments = append(arguments, serviceName)
	}
	return arguments
}

func (service *Service) awaitDatabase(executionContext context.Context) error {
	readinessCommand := execshell.ShellCommand{
		Name: execshell.CommandPodman,
		Details: execshell.CommandDetails{
			Arguments: []string{
				execSubcommandConstant,
				service.configuration.PostgresContainer,
				readinessInspectionCommandConstant,
				readinessUserFlagConstant, service.database.User,
				readinessDatabaseFlagConstant, service.database.Name,
			},
		},
	}

	for attempt := 1; attempt <= service.configuration.ReadinessAttempts; attempt++ {
		if waitError := service.wait(executionContext, service.configuration.ReadinessInterval); waitError != nil {
			return waitError
		}
		_, inspectionError := service.inspectionExecutor.Execute(executionContext, readinessCommand)
		if inspectionError == nil {
			return nil
		}
		service.logger.Debug(
			readinessAttemptFailedLogConstant,
			zap.Int(attemptFieldNameConstant, attempt),
			zap.String(containerFieldNameConstant, service.configuration.PostgresContainer),
			zap.Error(inspectionError),
		)
	}
	return workspace.WrapMessage(workspace.OperationComposeUp, service.configuration.PostgresContainer, workspace.ErrServiceNotReady, databaseNotReadyMessageConstant)
}

func (service *Service) composeTask(name string, arguments ...string) (taskrunner.Task, error) {
	return taskrunner.NewTaskBuilder(name, string(execshell.CommandPodmanCompose)).
		WithArguments(arguments...).
		WithWorkingDirectory(service.layout.Root()).
		Build()
}

func (service *Service) requireCompose(operation workspace.Operation) error {
	return workspace.RequireTool(service.toolLocator, operation, execshell.CommandPodmanCompose, "")
}
