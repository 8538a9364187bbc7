package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwrdd/cwrdd-make/internal/build"
	"github.com/cwrdd/cwrdd-make/internal/certs"
	"github.com/cwrdd/cwrdd-make/internal/compose"
	"github.com/cwrdd/cwrdd-make/internal/install"
	"github.com/cwrdd/cwrdd-make/internal/migrate"
	"github.com/cwrdd/cwrdd-make/internal/tools"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
)

const (
	versionCommandUseNameConstant           = "version"
	versionCommandShortDescriptionConstant  = "Print the cwrdd-make version"
	versionCommandLongDescriptionConstant   = "version prints the linked release version, the module version, or the VCS revision the binary was built from."
	configNamespaceUseNameConstant          = "config"
	configNamespaceShortDescriptionConstant = "Inspect and initialize configuration"
	configShowUseNameConstant               = "show"
	configShowShortDescriptionConstant      = "Print the effective configuration as YAML"
	configShowLongDescriptionConstant       = "show prints the configuration after defaults, the embedded document, the configuration file, and CWRDD_MAKE_* environment variables are layered."
	configInitUseNameConstant               = "init"
	configInitShortDescriptionConstant      = "Write the embedded default configuration"
	configInitLongDescriptionConstant       = "init writes the embedded default configuration to the local or user scope. Existing files are kept unless --force is given."
	commandBuildFailureMessageConstant      = "unable to build command"
)

type commandFactory func() (*cobra.Command, error)

func (application *Application) registerCommands(rootCommand *cobra.Command) {
	dependencies := application.commandDependencies()

	buildBuilder := &build.CommandBuilder{CommandDependencies: dependencies}
	composeBuilder := &compose.CommandBuilder{
		CommandDependencies:           dependencies,
		ComposeConfigurationProvider:  application.composeConfiguration,
		DatabaseConfigurationProvider: application.databaseConfiguration,
	}
	migrateBuilder := &migrate.CommandBuilder{
		CommandDependencies:           dependencies,
		DatabaseConfigurationProvider: application.databaseConfiguration,
	}
	certificateBuilder := &certs.CommandBuilder{CommandDependencies: dependencies}
	installBuilder := &install.CommandBuilder{CommandDependencies: dependencies}
	toolsBuilder := &tools.CommandBuilder{CommandDependencies: dependencies}

	factories := []commandFactory{
		buildBuilder.Build,
		buildBuilder.BuildTest,
		composeBuilder.Build,
		composeBuilder.BuildDown,
		composeBuilder.BuildLogs,
		migrateBuilder.BuildDiff,
		migrateBuilder.Build,
		migrateBuilder.BuildStatus,
		migrateBuilder.BuildRollback,
		migrateBuilder.BuildSeed,
		certificateBuilder.Build,
		certificateBuilder.BuildUntrust,
		installBuilder.Build,
		toolsBuilder.Build,
	}
	for _, factory := range factories {
		command, buildError := factory()
		if buildError != nil {
			application.logger.Error(commandBuildFailureMessageConstant, zap.Error(buildError))
			continue
		}
		rootCommand.AddCommand(command)
	}

	rootCommand.AddCommand(application.newConfigCommand())
	rootCommand.AddCommand(&cobra.Command{
		Use:           versionCommandUseNameConstant,
		Short:         versionCommandShortDescriptionConstant,
		Long:          versionCommandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			application.printVersion(command.OutOrStdout())
			return nil
		},
	})
}

func (application *Application) commandDependencies() workspace.CommandDependencies {
	return workspace.CommandDependencies{
		LoggerProvider: func() *zap.Logger {
			return application.logger
		},
		HumanReadableLoggingProvider: application.humanReadableLoggingEnabled,
		ConfigurationProvider:        application.workspaceConfiguration,
	}
}

func (application *Application) newConfigCommand() *cobra.Command {
	configCommand := &cobra.Command{
		Use:           configNamespaceUseNameConstant,
		Short:         configNamespaceShortDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
	}

	showCommand := &cobra.Command{
		Use:           configShowUseNameConstant,
		Short:         configShowShortDescriptionConstant,
		Long:          configShowLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			rendered, renderError := RenderConfiguration(application.configuration)
			if renderError != nil {
				return renderError
			}
			_, writeError := command.OutOrStdout().Write(rendered)
			return writeError
		},
	}

	initCommand := &cobra.Command{
		Use:           configInitUseNameConstant,
		Short:         configInitShortDescriptionConstant,
		Long:          configInitLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			return application.initializeConfigurationFile(command)
		},
	}
	initCommand.Flags().StringVar(
		&application.configurationInitializationScope,
		configurationInitializationScopeFlagNameConstant,
		configurationInitializationDefaultScopeConstant,
		configurationInitializationScopeFlagUsageConstant,
	)
	initCommand.Flags().BoolVar(
		&application.configurationInitializationForced,
		configurationInitializationForceFlagNameConstant,
		false,
		configurationInitializationForceFlagUsageConstant,
	)

	configCommand.AddCommand(showCommand, initCommand)
	return configCommand
}

func (application *Application) initializeConfigurationFile(command *cobra.Command) error {
	initializationPlan, planError := application.resolveConfigurationInitializationPlan(application.configurationInitializationScope)
	if planError != nil {
		return planError
	}

	configurationContent, _ := EmbeddedDefaultConfiguration()
	if len(configurationContent) == 0 {
		return errors.New(configurationInitializationContentUnavailableErrorConstant)
	}

	if writeError := writeConfigurationFile(initializationPlan, configurationContent, application.configurationInitializationForced); writeError != nil {
		return writeError
	}

	application.logger.Info(
		configurationInitializationSuccessMessageConstant,
		zap.String(configurationFileFieldConstant, initializationPlan.FilePath),
	)
	fmt.Fprintf(command.OutOrStdout(), configurationInitializationSuccessTemplateConstant, initializationPlan.FilePath)
	return nil
}
