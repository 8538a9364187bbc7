package install

import (
	"github.com/spf13/cobra"

	"github.com/cwrdd/cwrdd-make/internal/workspace"
)

const (
	installCommandUseConstant              = "install"
	installCommandShortDescriptionConstant = "Install cwrdd-make to your PATH"
	installCommandLongDescriptionConstant  = "install copies the running cwrdd-make binary to ~/.local/bin/cwrdd-make and explains how to add that directory to PATH."
)

// CommandBuilder assembles the install Cobra command.
type CommandBuilder struct {
	workspace.CommandDependencies
	Executable    func() (string, error)
	HomeDirectory func() (string, error)
	SearchPath    func() string
}

// Build constructs the install command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	return &cobra.Command{
		Use:           installCommandUseConstant,
		Short:         installCommandShortDescriptionConstant,
		Long:          installCommandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			resolved, resolveError := builder.Resolve(command)
			if resolveError != nil {
				return resolveError
			}
			service := NewService(Dependencies{
				Executable:    builder.Executable,
				HomeDirectory: builder.HomeDirectory,
				SearchPath:    builder.SearchPath,
				Output:        resolved.Output,
				Logger:        resolved.Logger,
			})
			return service.Install()
		},
	}, nil
}
