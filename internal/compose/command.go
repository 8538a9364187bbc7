package compose

import (
	"github.com/spf13/cobra"

	"github.com/cwrdd/cwrdd-make/internal/build"
	"github.com/cwrdd/cwrdd-make/internal/certs"
	"github.com/cwrdd/cwrdd-make/internal/migrate"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
)

const (
	upCommandUseConstant                = "up"
	upCommandShortDescriptionConstant   = "Start local development environment"
	upCommandLongDescriptionConstant    = "up generates TLS certificates when missing, builds the application and its image, starts podman-compose, waits for PostgreSQL, and applies pending migrations and seed data."
	downCommandUseConstant              = "down"
	downCommandShortDescriptionConstant = "Stop local development environment"
	downCommandLongDescriptionConstant  = "down runs podman-compose down in the repository root."
	logsCommandUseConstant              = "logs [service]"
	logsCommandShortDescriptionConstant = "Show logs from services"
	logsCommandLongDescriptionConstant  = "logs relays podman-compose logs for every service or the named one."
	recreateFlagNameConstant            = "recreate"
	recreateFlagDescriptionConstant     = "Force recreate containers"
	followFlagNameConstant              = "follow"
	followFlagShorthandConstant         = "f"
	followFlagDescriptionConstant       = "Follow log output"
)

// CommandBuilder assembles the up, down, and logs Cobra commands.
type CommandBuilder struct {
	workspace.CommandDependencies
	ComposeConfigurationProvider  func() Configuration
	DatabaseConfigurationProvider func() migrate.DatabaseConfiguration
	TrustedCertificatePath        string
	Wait                          WaitFunc
}

// Build constructs the up command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           upCommandUseConstant,
		Short:         upCommandShortDescriptionConstant,
		Long:          upCommandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			recreate, flagError := command.Flags().GetBool(recreateFlagNameConstant)
			if flagError != nil {
				return flagError
			}
			service, serviceError := builder.service(command)
			if serviceError != nil {
				return serviceError
			}
			return service.Up(command.Context(), recreate)
		},
	}
	command.Flags().Bool(recreateFlagNameConstant, false, recreateFlagDescriptionConstant)
	return command, nil
}

// BuildDown constructs the down command.
func (builder *CommandBuilder) BuildDown() (*cobra.Command, error) {
	return &cobra.Command{
		Use:           downCommandUseConstant,
		Short:         downCommandShortDescriptionConstant,
		Long:          downCommandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			service, serviceError := builder.service(command)
			if serviceError != nil {
				return serviceError
			}
			return service.Down(command.Context())
		},
	}, nil
}

// BuildLogs constructs the logs command.
func (builder *CommandBuilder) BuildLogs() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           logsCommandUseConstant,
		Short:         logsCommandShortDescriptionConstant,
		Long:          logsCommandLongDescriptionConstant,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			follow, flagError := command.Flags().GetBool(followFlagNameConstant)
			if flagError != nil {
				return flagError
			}
			serviceName := ""
			if len(arguments) > 0 {
				serviceName = arguments[0]
			}
			service, serviceError := builder.service(command)
			if serviceError != nil {
				return serviceError
			}
			return service.Logs(command.Context(), serviceName, follow)
		},
	}
	command.Flags().BoolP(followFlagNameConstant, followFlagShorthandConstant, false, followFlagDescriptionConstant)
	return command, nil
}

func (builder *CommandBuilder) service(command *cobra.Command) (*Service, error) {
	resolved, resolveError := builder.Resolve(command)
	if resolveError != nil {
		return nil, resolveError
	}

	configuration := DefaultConfiguration()
	if builder.ComposeConfigurationProvider != nil {
		configuration = builder.ComposeConfigurationProvider()
	}
	database := migrate.DefaultDatabaseConfiguration()
	if builder.DatabaseConfigurationProvider != nil {
		database = builder.DatabaseConfigurationProvider()
	}

	certificateService, certificateError := certs.NewService(certs.Dependencies{
		Layout:                 resolved.Layout,
		TaskExecutor:           resolved.TaskExecutor,
		Output:                 resolved.Output,
		TrustedCertificatePath: builder.TrustedCertificatePath,
	})
	if certificateError != nil {
		return nil, certificateError
	}
	buildService, buildError := build.NewService(build.Dependencies{
		Layout:       resolved.Layout,
		TaskExecutor: resolved.TaskExecutor,
		ToolLocator:  resolved.ToolLocator,
		Output:       resolved.Output,
	})
	if buildError != nil {
		return nil, buildError
	}
	migrationService, migrationError := migrate.NewService(migrate.Dependencies{
		Layout:             resolved.Layout,
		Database:           database,
		TaskExecutor:       resolved.TaskExecutor,
		InspectionExecutor: resolved.InspectionExecutor,
		ToolLocator:        resolved.ToolLocator,
		Output:             resolved.Output,
		Errors:             resolved.Errors,
	})
	if migrationError != nil {
		return nil, migrationError
	}

	return NewService(Dependencies{
		Layout:             resolved.Layout,
		Configuration:      configuration,
		Database:           database,
		TaskExecutor:       resolved.TaskExecutor,
		InspectionExecutor: resolved.InspectionExecutor,
		ToolLocator:        resolved.ToolLocator,
		Certificates:       certificateService,
		Builder:            buildService,
		Migrations:         migrationService,
		Output:             resolved.Output,
		Logger:             resolved.Logger,
		Wait:               builder.Wait,
	})
}
