package tools

import (
	"github.com/spf13/cobra"

	"github.com/cwrdd/cwrdd-make/internal/workspace"
)

const (
	getToolsCommandUseConstant              = "get-tools"
	getToolsCommandShortDescriptionConstant = "Install development tools"
	getToolsCommandLongDescriptionConstant  = "get-tools installs the missing development tools (Podman, podman-compose, Liquibase, the PostgreSQL client, and gotestsum) with apt on Ubuntu/Debian or Homebrew on macOS."
)

// CommandBuilder assembles the get-tools Cobra command.
type CommandBuilder struct {
	workspace.CommandDependencies
	Platform func() Platform
}

// Build constructs the get-tools command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	return &cobra.Command{
		Use:           getToolsCommandUseConstant,
		Short:         getToolsCommandShortDescriptionConstant,
		Long:          getToolsCommandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			resolved, resolveError := builder.Resolve(command)
			if resolveError != nil {
				return resolveError
			}
			service, serviceError := NewService(Dependencies{
				TaskExecutor:       resolved.TaskExecutor,
				InspectionExecutor: resolved.InspectionExecutor,
				ToolLocator:        resolved.ToolLocator,
				Platform:           builder.Platform,
				Output:             resolved.Output,
				Logger:             resolved.Logger,
			})
			if serviceError != nil {
				return serviceError
			}
			return service.Install(command.Context())
		},
	}, nil
}
