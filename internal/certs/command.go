package certs

import (
	"github.com/spf13/cobra"

	"github.com/cwrdd/cwrdd-make/internal/workspace"
)

const (
	trustCommandUseConstant                = "trust-cert"
	trustCommandShortDescriptionConstant   = "Trust the self-signed development certificate"
	trustCommandLongDescriptionConstant    = "trust-cert installs <repo>/config/certs/cert.pem into the system CA store with sudo and refreshes it (Linux)."
	untrustCommandUseConstant              = "untrust-cert"
	untrustCommandShortDescriptionConstant = "Remove the development certificate from the system trust store"
	untrustCommandLongDescriptionConstant  = "untrust-cert removes the installed development certificate and rebuilds the system CA store."
)

// CommandBuilder assembles the trust-cert and untrust-cert Cobra commands.
type CommandBuilder struct {
	workspace.CommandDependencies
	TrustedCertificatePath string
}

// Build constructs the trust-cert command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	return &cobra.Command{
		Use:           trustCommandUseConstant,
		Short:         trustCommandShortDescriptionConstant,
		Long:          trustCommandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			service, serviceError := builder.service(command)
			if serviceError != nil {
				return serviceError
			}
			return service.Trust(command.Context())
		},
	}, nil
}

// BuildUntrust constructs the untrust-cert command.
func (builder *CommandBuilder) BuildUntrust() (*cobra.Command, error) {
	return &cobra.Command{
		Use:           untrustCommandUseConstant,
		Short:         untrustCommandShortDescriptionConstant,
		Long:          untrustCommandLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			service, serviceError := builder.service(command)
			if serviceError != nil {
				return serviceError
			}
			return service.Untrust(command.Context())
		},
	}, nil
}

func (builder *CommandBuilder) service(command *cobra.Command) (*Service, error) {
	resolved, resolveError := builder.Resolve(command)
	if resolveError != nil {
		return nil, resolveError
	}
	return NewService(Dependencies{
		Layout:                 resolved.Layout,
		TaskExecutor:           resolved.TaskExecutor,
		Output:                 resolved.Output,
		TrustedCertificatePath: builder.TrustedCertificatePath,
	})
}
