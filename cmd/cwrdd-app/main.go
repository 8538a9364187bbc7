package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwrdd/cwrdd-make/internal/utils"
	"github.com/cwrdd/cwrdd-make/internal/webapp"
)

const (
	applicationNameConstant             = "cwrdd-app"
	applicationShortDescriptionConstant = "Serve the cwrdd web application over HTTPS"
	addressFlagNameConstant             = "address"
	addressFlagUsageConstant            = "Address to listen on."
	certificateFlagNameConstant         = "cert"
	certificateFlagUsageConstant        = "Path to the PEM-encoded TLS certificate."
	keyFlagNameConstant                 = "key"
	keyFlagUsageConstant                = "Path to the PEM-encoded TLS private key."
	logLevelFlagNameConstant            = "log-level"
	logLevelFlagUsageConstant           = "Log level (debug, info, warn, or error)."
	logFormatFlagNameConstant           = "log-format"
	logFormatFlagUsageConstant          = "Log format (structured or console)."
	exitErrorTemplateConstant           = "Error: %v\n"
)

func newRootCommand() *cobra.Command {
	configuration := webapp.DefaultConfiguration()
	logLevel := string(utils.LogLevelInfo)
	logFormat := string(utils.LogFormatStructured)

	command := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, _ []string) error {
			loggerOutputs, loggerError := utils.NewLoggerFactory().CreateLoggerOutputs(utils.LogLevel(logLevel), utils.LogFormat(logFormat))
			if loggerError != nil {
				return loggerError
			}
			logger := loggerOutputs.DiagnosticLogger
			defer func(logger *zap.Logger) { _ = logger.Sync() }(logger)

			gin.SetMode(gin.ReleaseMode)
			server, serverError := webapp.NewServer(webapp.Dependencies{
				Configuration: configuration,
				Output:        command.OutOrStdout(),
				Logger:        logger,
			})
			if serverError != nil {
				return serverError
			}

			executionContext, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(executionContext)
		},
	}

	command.Flags().StringVar(&configuration.Address, addressFlagNameConstant, configuration.Address, addressFlagUsageConstant)
	command.Flags().StringVar(&configuration.CertificatePath, certificateFlagNameConstant, configuration.CertificatePath, certificateFlagUsageConstant)
	command.Flags().StringVar(&configuration.KeyPath, keyFlagNameConstant, configuration.KeyPath, keyFlagUsageConstant)
	command.Flags().StringVar(&logLevel, logLevelFlagNameConstant, logLevel, logLevelFlagUsageConstant)
	command.Flags().StringVar(&logFormat, logFormatFlagNameConstant, logFormat, logFormatFlagUsageConstant)
	return command
}

// main runs the cwrdd web server until it receives an interrupt.
func main() {
	if executionError := newRootCommand().ExecuteContext(context.Background()); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
