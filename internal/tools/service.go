package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/internal/migrate"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
)

const (
	getToolsBannerConstant              = "🔧 Installing development tools\n\n"
	detectedPlatformTemplateConstant    = "Detected OS: %s\n\n"
	installingForTemplateConstant       = "Installing tools for %s...\n\n"
	allInstalledMessageConstant         = "✅ All tools already installed!\n"
	noteTemplateConstant                = "%s\n"
	toolchainMessageConstant            = "\n🧪 Installing gotestsum...\n"
	socketMessageConstant               = "\n🔌 Configuring Podman socket...\n"
	installedMessageConstant            = "\n✅ All tools installed successfully!\n\n"
	versionsHeaderConstant              = "Installed versions:\n"
	versionLineTemplateConstant         = "  %s: %s\n"
	outdatedLiquibaseTemplateConstant   = "⚠️  Liquibase %s is older than the tested %s; migrations may behave differently.\n"
	debianFamilyDescriptionConstant     = "Ubuntu/Debian"
	macOSDescriptionConstant            = "macOS"
	versionFlagConstant                 = "--version"
	socketFailureLogConstant            = "podman socket configuration failed"
	versionInspectionFailureLogConstant = "version inspection failed"
	toolFieldNameConstant               = "tool"
	semverPrefixConstant                = "v"
	executorMissingMessageConstant      = "tools service task executor not configured"
	inspectionMissingMessageConstant    = "tools service inspection executor not configured"
)

const unsupportedPlatformTemplateConstant = `Unsupported OS: %s. Please install tools manually:
 - Podman: https://podman.io/getting-started/installation
 - podman-compose: https://github.com/containers/podman-compose
 - Liquibase: https://www.liquibase.org/download
 - PostgreSQL client: psql command
 - gotestsum: go install gotest.tools/gotestsum@latest`

var (
	// ErrTaskExecutorNotConfigured indicates the service was constructed without a task executor.
	ErrTaskExecutorNotConfigured = errors.New(executorMissingMessageConstant)
	// ErrInspectionExecutorNotConfigured indicates the service was constructed without a inspection executor.
	ErrInspectionExecutorNotConfigured = errors.New(inspectionMissingMessageConstant)
)

var versionNumberPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

type versionInspection struct {
	label     string
	command   execshell.CommandName
	firstLine bool
}

var versionInspections = []versionInspection{
	{label: "Podman", command: execshell.CommandPodman},
	{label: "podman-compose", command: execshell.CommandPodmanCompose},
	{label: "Liquibase", command: execshell.CommandLiquibase, firstLine: true},
	{label: "PostgreSQL", command: execshell.CommandPsql},
	{label: "gotestsum", command: execshell.CommandGotestsum},
}

// Dependencies describes the collaborators required by the tools service.
type Dependencies struct {
	TaskExecutor  workspace.TaskExecutor
	InspectionExecutor workspace.InspectionExecutor
	ToolLocator   workspace.ToolLocator
	Platform      func() Platform
	Output        io.Writer
	Logger        *zap.Logger
}

// Service installs the external development tools for the host platform.
type Service struct {
	taskExecutor  workspace.TaskExecutor
	inspectionExecutor workspace.InspectionExecutor
	toolLocator   workspace.ToolLocator
	platform      func() Platform
	output        io.Writer
	logger        *zap.Logger
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
		taskExecutor:       dependencies.TaskExecutor,
		inspectionExecutor: dependencies.InspectionExecutor,
		toolLocator:        workspace.ResolveToolLocator(dependencies.ToolLocator),
		platform:           dependencies.Platform,
		output:             dependencies.Output,
		logger:             dependencies.Logger,
	}
	if service.platform == nil {
		service.platform = DetectHostPlatform
	}
	if service.output == nil {
		service.output = io.Discard
	}
	if service.logger == nil {
		service.logger = zap.NewNop()
	}
	return service, nil
}

// Install plans installs for the missing tools, runs them, and reports installed versions.
func (service *Service) Install(executionContext context.Context) error {
	fmt.Fprint(service.output, getToolsBannerConstant)

	platform := service.platform()
	fmt.Fprintf(service.output, detectedPlatformTemplateConstant, platform)

	var (
		plan      Plan
		planError error
	)
	switch platform {
	case PlatformUbuntu, PlatformDebian:
		fmt.Fprintf(service.output, installingForTemplateConstant, debianFamilyDescriptionConstant)
		plan, planError = BuildDebianPlan(service.toolLocator)
	case PlatformMacOS:
		fmt.Fprintf(service.output, installingForTemplateConstant, macOSDescriptionConstant)
		plan, planError = BuildMacOSPlan(service.toolLocator)
	default:
		return workspace.WrapMessage(workspace.OperationGetTools, string(platform), workspace.ErrUnsupportedPlatform, fmt.Sprintf(unsupportedPlatformTemplateConstant, platform))
	}
	if planError != nil {
		return planError
	}

	for _, note := range plan.Notes {
		fmt.Fprintf(service.output, noteTemplateConstant, note)
	}
	if plan.Empty() {
		if len(plan.Notes) == 0 {
			fmt.Fprint(service.output, allInstalledMessageConstant)
		}
		return nil
	}

	if runError := service.taskExecutor.RunTasks(executionContext, plan.PackageTasks); runError != nil {
		return runError
	}
	if len(plan.ToolchainTasks) > 0 {
		fmt.Fprint(service.output, toolchainMessageConstant)
		if runError := service.taskExecutor.RunTasks(executionContext, plan.ToolchainTasks); runError != nil {
			return runError
		}
	}
	if len(plan.SocketTasks) > 0 {
		fmt.Fprint(service.output, socketMessageConstant)
		if socketError := service.taskExecutor.RunTasks(executionContext, plan.SocketTasks); socketError != nil {
			service.logger.Warn(socketFailureLogConstant, zap.Error(socketError))
		}
	}

	fmt.Fprint(service.output, installedMessageConstant)
	service.ReportVersions(executionContext)
	return nil
}

// ReportVersions prints the version of every installed tool and warns about an outdated Liquibase.
func (service *Service) ReportVersions(executionContext context.Context) {
	fmt.Fprint(service.output, versionsHeaderConstant)
	for _, inspection := range versionInspections {
		if !service.toolLocator(string(inspection.command)) {
			continue
		}
		result, inspectionError := service.inspectionExecutor.Execute(executionContext, execshell.ShellCommand{
			Name:    inspection.command,
			Details: execshell.CommandDetails{Arguments: []string{versionFlagConstant}},
		})
		if inspectionError != nil {
			service.logger.Debug(versionInspectionFailureLogConstant, zap.String(toolFieldNameConstant, string(inspection.command)), zap.Error(inspectionError))
			continue
		}

		version := strings.TrimSpace(result.StandardOutput)
		if inspection.firstLine {
			version = firstNonEmptyLine(version)
		}
		fmt.Fprintf(service.output, versionLineTemplateConstant, inspection.label, version)

		if inspection.command == execshell.CommandLiquibase {
			if installed, outdated := LiquibaseOutdated(result.StandardOutput); outdated {
				fmt.Fprintf(service.output, outdatedLiquibaseTemplateConstant, installed, migrate.LiquibaseVersionConstant)
			}
		}
	}
}

// LiquibaseOutdated extracts the first x.y.z version from versionOutput and reports whether it predates the pinned release.
func LiquibaseOutdated(versionOutput string) (string, bool) {
	installed := versionNumberPattern.FindString(versionOutput)
	if len(installed) == 0 {
		return "", false
	}
	return installed, semver.Compare(semverPrefixConstant+installed, semverPrefixConstant+migrate.LiquibaseVersionConstant) < 0
}

func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); len(trimmed) > 0 {
			return trimmed
		}
	}
	return ""
}
