package build

import (
	"github.com/spf13/cobra"

	"github.com/cwrdd/cwrdd-make/internal/workspace"
)

const (
	buildCommandUseConstant              = "build"
	buildCommandShortDescriptionConstant = "Build the application"
	buildCommandLongDescriptionConstant  = "build compiles every package of the Go application under <repo>/app with go build ./..."
	testCommandUseConstant               = "test"
	testCommandShortDescriptionConstant  = "Run tests"
	testCommandLongDescriptionConstant   = "test runs the application's tests with gotestsum when it is installed, otherwise with go test ./..."
)

// CommandBuilder assembles the build and test Cobra commands.
type CommandBuilder struct {
	workspace.CommandDependencies
}

// Build constructs the build command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	return &cobra.Command{
		Use:           buildCommandUseConstant,
		Short:         buildCommandShortDescriptionConstant,
		Long:          buildCommandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			service, serviceError := builder.service(command)
			if serviceError != nil {
				return serviceError
			}
			return service.Build(command.Context())
		},
	}, nil
}

// BuildTest constructs the test command.
func (builder *CommandBuilder) BuildTest() (*cobra.Command, error) {
	return &cobra.Command{
		Use:           testCommandUseConstant,
		Short:         testCommandShortDescriptionConstant,
		Long:          testCommandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			service, serviceError := builder.service(command)
			if serviceError != nil {
				return serviceError
			}
			return service.Test(command.Context())
		},
	}, nil
}

func (builder *CommandBuilder) service(command *cobra.Command) (*Service, error) {
	resolved, resolveError := builder.Resolve(command)
	if resolveError != nil {
		return nil, resolveError
	}
	return NewService(Dependencies{
		Layout:       resolved.Layout,
		TaskExecutor: resolved.TaskExecutor,
		ToolLocator:  resolved.ToolLocator,
		Output:       resolved.Output,
	})
}
