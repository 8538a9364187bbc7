package certs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
	"github.com/cwrdd/cwrdd-make/pkg/taskrunner"
)

// DefaultTrustedCertificatePathConstant is where trust-cert installs the development certificate.
const DefaultTrustedCertificatePathConstant = "/usr/local/share/ca-certificates/cwrdd-dev.crt"

const (
	certificatesExistMessageConstant         = "✅ TLS certificates already exist\n\n"
	generatingMessageConstant                = "🔐 Generating self-signed TLS certificates...\n"
	generatedMessageConstant                 = "✅ TLS certificates generated\n\n"
	trustBannerConstant                      = "🔐 Trusting self-signed certificate locally\n\n"
	trustInstallingMessageConstant           = "📋 Installing certificate to system trust store...\n   This requires sudo access.\n\n"
	trustCompletedMessageConstant            = "\n✅ Certificate trusted system-wide!\n"
	browserHintsMessageConstant              = "\n⚠️  Note: Some browsers maintain their own certificate stores.\n   For Firefox: Settings > Privacy & Security > Certificates > View Certificates > Import\n   For Chrome/Chromium: The system store should work, restart browser if needed.\n"
	certificateLocationTemplateConstant      = "\n   Certificate location: %s\n"
	untrustBannerConstant                    = "🔓 Removing trust for self-signed certificate\n\n"
	untrustCompletedMessageConstant          = "✅ Certificate removed from system trust store\n"
	untrustNotInstalledMessageConstant       = "ℹ️  Certificate was not installed in system trust store\n"
	certificateMissingTemplateConstant       = "certificate not found at %s\nRun 'cwrdd-make up' first to generate certificates."
	createDirectoryErrorTemplateConstant     = "unable to create certificates directory %s: %w"
	generateTaskNameConstant                 = "generate certs"
	copyTaskNameConstant                     = "copy cert"
	updateTaskNameConstant                   = "update ca-certificates"
	removeTaskNameConstant                   = "remove cert"
	updateCertificatesCommandConstant        = "update-ca-certificates"
	freshFlagConstant                        = "--fresh"
	copyCommandConstant                      = "cp"
	removeCommandConstant                    = "rm"
	certificateSubjectConstant               = "/CN=localhost/O=cwrdd-dev"
	subjectAlternativeNameConstant           = "subjectAltName=DNS:localhost,IP:127.0.0.1"
	certificateValidityDaysConstant          = "365"
	certificateKeyAlgorithmConstant          = "rsa:4096"
	certificatesDirectoryPermissionsConstant = 0o755
	executorMissingMessageConstant           = "certificate service task executor not configured"
)

// ErrTaskExecutorNotConfigured indicates the service was constructed without a task executor.
var ErrTaskExecutorNotConfigured = errors.New(executorMissingMessageConstant)

// Dependencies describes the collaborators required by the certificate service.
type Dependencies struct {
	Layout                 workspace.Layout
	TaskExecutor           workspace.TaskExecutor
	Output                 io.Writer
	TrustedCertificatePath string
}

// Service manages the self-signed development certificate and its system trust.
type Service struct {
	layout                 workspace.Layout
	taskExecutor           workspace.TaskExecutor
	output                 io.Writer
	trustedCertificatePath string
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.TaskExecutor == nil {
		return nil, ErrTaskExecutorNotConfigured
	}
	output := dependencies.Output
	if output == nil {
		output = io.Discard
	}
	trustedCertificatePath := dependencies.TrustedCertificatePath
	if len(trustedCertificatePath) == 0 {
		trustedCertificatePath = DefaultTrustedCertificatePathConstant
	}
	return &Service{
		layout:                 dependencies.Layout,
		taskExecutor:           dependencies.TaskExecutor,
		output:                 output,
		trustedCertificatePath: trustedCertificatePath,
	}, nil
}

// Ensure generates a self-signed localhost certificate unless both the certificate and key already exist.
func (service *Service) Ensure(executionContext context.Context) error {
	certificatePath := service.layout.CertificatePath()
	privateKeyPath := service.layout.PrivateKeyPath()
	if fileExists(certificatePath) && fileExists(privateKeyPath) {
		fmt.Fprint(service.output, certificatesExistMessageConstant)
		return nil
	}

	fmt.Fprint(service.output, generatingMessageConstant)

	certificatesDirectory := service.layout.CertificatesDirectory()
	if mkdirError := os.MkdirAll(certificatesDirectory, certificatesDirectoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf(createDirectoryErrorTemplateConstant, certificatesDirectory, mkdirError)
	}

	generateTask, taskError := taskrunner.NewTaskBuilder(generateTaskNameConstant, string(execshell.CommandOpenSSL)).
		WithArguments(
			"req", "-x509", "-newkey", certificateKeyAlgorithmConstant,
			"-keyout", privateKeyPath,
			"-out", certificatePath,
			"-days", certificateValidityDaysConstant,
			"-nodes",
			"-subj", certificateSubjectConstant,
			"-addext", subjectAlternativeNameConstant,
		).
		Build()
	if taskError != nil {
		return taskError
	}
	if executionError := service.taskExecutor.Execute(executionContext, generateTask); executionError != nil {
		return executionError
	}

	fmt.Fprint(service.output, generatedMessageConstant)
	return nil
}

// Trust copies the certificate into the system CA store and refreshes it.
func (service *Service) Trust(executionContext context.Context) error {
	fmt.Fprint(service.output, trustBannerConstant)

	certificatePath := service.layout.CertificatePath()
	if !fileExists(certificatePath) {
		return workspace.WrapMessage(workspace.OperationTrustCert, certificatePath, workspace.ErrPrerequisiteMissing, fmt.Sprintf(certificateMissingTemplateConstant, certificatePath))
	}

	fmt.Fprint(service.output, trustInstallingMessageConstant)

	copyTask, copyTaskError := taskrunner.NewTaskBuilder(copyTaskNameConstant, string(execshell.CommandSudo)).
		WithArguments(copyCommandConstant, certificatePath, service.trustedCertificatePath).
		Build()
	if copyTaskError != nil {
		return copyTaskError
	}
	updateTask, updateTaskError := taskrunner.NewTaskBuilder(updateTaskNameConstant, string(execshell.CommandSudo)).
		WithArguments(updateCertificatesCommandConstant).
		Build()
	if updateTaskError != nil {
		return updateTaskError
	}

	if runError := service.taskExecutor.RunTasks(executionContext, []taskrunner.Task{copyTask, updateTask}); runError != nil {
		return runError
	}

	fmt.Fprint(service.output, trustCompletedMessageConstant)
	fmt.Fprint(service.output, browserHintsMessageConstant)
	fmt.Fprintf(service.output, certificateLocationTemplateConstant, certificatePath)
	return nil
}

// Untrust removes the installed certificate and rebuilds the CA store. Nothing runs when it was never installed.
func (service *Service) Untrust(executionContext context.Context) error {
	fmt.Fprint(service.output, untrustBannerConstant)

	if !fileExists(service.trustedCertificatePath) {
		fmt.Fprint(service.output, untrustNotInstalledMessageConstant)
		return nil
	}

	removeTask, removeTaskError := taskrunner.NewTaskBuilder(removeTaskNameConstant, string(execshell.CommandSudo)).
		WithArguments(removeCommandConstant, service.trustedCertificatePath).
		Build()
	if removeTaskError != nil {
		return removeTaskError
	}
	updateTask, updateTaskError := taskrunner.NewTaskBuilder(updateTaskNameConstant, string(execshell.CommandSudo)).
		WithArguments(updateCertificatesCommandConstant, freshFlagConstant).
		Build()
	if updateTaskError != nil {
		return updateTaskError
	}

	if runError := service.taskExecutor.RunTasks(executionContext, []taskrunner.Task{removeTask, updateTask}); runError != nil {
		return runError
	}

	fmt.Fprint(service.output, untrustCompletedMessageConstant)
	return nil
}

func fileExists(path string) bool {
	_, statError := os.Stat(path)
	return statError == nil
}
