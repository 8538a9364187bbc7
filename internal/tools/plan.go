package tools

import (
	"fmt"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/internal/migrate"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
	"github.com/cwrdd/cwrdd-make/pkg/taskrunner"
)

const (
	podmanLabelConstant              = "Podman"
	podmanComposeLabelConstant       = "podman-compose"
	liquibaseLabelConstant           = "Liquibase"
	postgresClientLabelConstant      = "PostgreSQL client"
	gotestsumLabelConstant           = "gotestsum"
	containerIconConstant            = "🐳"
	liquibaseIconConstant            = "💧"
	postgresIconConstant             = "🐘"
	installingTemplateConstant       = "%s Installing %s..."
	alreadyInstalledTemplateConstant = "✓ %s already installed"
	updatingPackagesMessageConstant  = "📦 Updating package lists..."
	goMissingMessageConstant         = "⚠️  Go not found; skipping gotestsum. Install Go from https://go.dev/dl/ and rerun get-tools."
	aptCommandConstant               = "apt"
	aptUpdateSubcommandConstant      = "update"
	aptInstallSubcommandConstant     = "install"
	assumeYesFlagConstant            = "-y"
	podmanPackageConstant            = "podman"
	podmanComposePackageConstant     = "podman-compose"
	postgresClientPackageConstant    = "postgresql-client"
	javaRuntimePackageConstant       = "default-jre"
	brewInstallSubcommandConstant    = "install"
	brewLiquibasePackageConstant     = "liquibase"
	brewPostgresPackageConstant      = "postgresql@16"
	liquibaseArchivePathConstant     = "/tmp/liquibase.tar.gz"
	liquibaseHomeConstant            = "/opt/liquibase"
	liquibaseExecutableConstant      = "/opt/liquibase/liquibase"
	liquibaseLinkConstant            = "/usr/local/bin/liquibase"
	quietFlagConstant                = "-q"
	outputFlagConstant               = "-O"
	mkdirCommandConstant             = "mkdir"
	parentsFlagConstant              = "-p"
	tarCommandConstant               = "tar"
	extractFlagsConstant             = "-xzf"
	directoryFlagConstant            = "-C"
	linkCommandConstant              = "ln"
	symbolicForceFlagConstant        = "-sf"
	chmodCommandConstant             = "chmod"
	executableModeConstant           = "+x"
	goInstallSubcommandConstant      = "install"
	gotestsumModuleConstant          = "gotest.tools/gotestsum@latest"
	systemctlUserFlagConstant        = "--user"
	systemctlEnableConstant          = "enable"
	systemctlStartConstant           = "start"
	podmanSocketUnitConstant         = "podman.socket"
	aptUpdateTaskNameConstant        = "apt update"
	installJavaTaskNameConstant      = "install java"
	downloadLiquibaseTaskConstant    = "download liquibase"
	createLiquibaseDirTaskConstant   = "create liquibase dir"
	extractLiquibaseTaskConstant     = "extract liquibase"
	symlinkLiquibaseTaskConstant     = "symlink liquibase"
	chmodLiquibaseTaskConstant       = "chmod liquibase"
	cleanupTaskNameConstant          = "cleanup"
	installGotestsumTaskNameConstant = "install gotestsum"
	enableSocketTaskNameConstant     = "enable podman socket"
	startSocketTaskNameConstant      = "start podman socket"
	installTaskPrefixConstant        = "install "
	brewTaskPrefixConstant           = "brew install "
	brewRequiredMessageConstant      = "Homebrew is required. Install it from: https://brew.sh"
)

// Plan is the ordered set of installation steps for the tools missing on a host.
type Plan struct {
	Notes          []string
	PackageTasks   []taskrunner.Task
	ToolchainTasks []taskrunner.Task
	SocketTasks    []taskrunner.Task
}

// Empty reports whether nothing needs to be installed.
func (plan Plan) Empty() bool {
	return len(plan.PackageTasks) == 0 && len(plan.ToolchainTasks) == 0
}

type missingTools struct {
	podman        bool
	podmanCompose bool
	liquibase     bool
	postgres      bool
	gotestsum     bool
}

func inventory(locator workspace.ToolLocator) missingTools {
	return missingTools{
		podman:        !locator(string(execshell.CommandPodman)),
		podmanCompose: !locator(string(execshell.CommandPodmanCompose)),
		liquibase:     !locator(string(execshell.CommandLiquibase)),
		postgres:      !locator(string(execshell.CommandPsql)),
		gotestsum:     !locator(string(execshell.CommandGotestsum)),
	}
}

func (missing missingTools) none() bool {
	return !missing.podman && !missing.podmanCompose && !missing.liquibase && !missing.postgres && !missing.gotestsum
}

type planBuilder struct {
	plan       Plan
	buildError error
}

func (builder *planBuilder) note(format string, values ...any) {
	builder.plan.Notes = append(builder.plan.Notes, fmt.Sprintf(format, values...))
}

func (builder *planBuilder) task(target *[]taskrunner.Task, name string, executable execshell.CommandName, arguments ...string) {
	if builder.buildError != nil {
		return
	}
	task, taskError := taskrunner.NewTaskBuilder(name, string(executable)).WithArguments(arguments...).Build()
	if taskError != nil {
		builder.buildError = taskError
		return
	}
	*target = append(*target, task)
}

func (builder *planBuilder) packageTask(name string, executable execshell.CommandName, arguments ...string) {
	builder.task(&builder.plan.PackageTasks, name, executable, arguments...)
}

func (builder *planBuilder) step(missing bool, icon string, label string, add func()) {
	if !missing {
		builder.note(alreadyInstalledTemplateConstant, label)
		return
	}
	builder.note(installingTemplateConstant, icon, label)
	add()
}

func (builder *planBuilder) gotestsum(missing bool, locator workspace.ToolLocator) {
	if !missing {
		builder.note(alreadyInstalledTemplateConstant, gotestsumLabelConstant)
		return
	}
	if !locator(string(execshell.CommandGo)) {
		builder.note(goMissingMessageConstant)
		return
	}
	builder.task(&builder.plan.ToolchainTasks, installGotestsumTaskNameConstant, execshell.CommandGo, goInstallSubcommandConstant, gotestsumModuleConstant)
}

// BuildDebianPlan plans apt installs for Ubuntu and Debian hosts. Liquibase is installed from the pinned release archive.
func BuildDebianPlan(locator workspace.ToolLocator) (Plan, error) {
	locator = workspace.ResolveToolLocator(locator)
	missing := inventory(locator)
	if missing.none() {
		return Plan{}, nil
	}

	builder := &planBuilder{}
	if missing.podman || missing.podmanCompose || missing.liquibase || missing.postgres {
		builder.note(updatingPackagesMessageConstant)
		builder.packageTask(aptUpdateTaskNameConstant, execshell.CommandSudo, aptCommandConstant, aptUpdateSubcommandConstant)
	}

	aptInstall := func(packageName string) func() {
		return func() {
			builder.packageTask(installTaskPrefixConstant+packageName, execshell.CommandSudo, aptCommandConstant, aptInstallSubcommandConstant, assumeYesFlagConstant, packageName)
		}
	}
	builder.step(missing.podman, containerIconConstant, podmanLabelConstant, aptInstall(podmanPackageConstant))
	builder.step(missing.podmanCompose, containerIconConstant, podmanComposeLabelConstant, aptInstall(podmanComposePackageConstant))
	builder.step(missing.postgres, postgresIconConstant, postgresClientLabelConstant, aptInstall(postgresClientPackageConstant))
	builder.step(missing.liquibase, liquibaseIconConstant, liquibaseLabelConstant, func() {
		if !locator(string(execshell.CommandJava)) {
			builder.packageTask(installJavaTaskNameConstant, execshell.CommandSudo, aptCommandConstant, aptInstallSubcommandConstant, assumeYesFlagConstant, javaRuntimePackageConstant)
		}
		builder.packageTask(downloadLiquibaseTaskConstant, execshell.CommandWget, quietFlagConstant, migrate.LiquibaseDownloadURLConstant, outputFlagConstant, liquibaseArchivePathConstant)
		builder.packageTask(createLiquibaseDirTaskConstant, execshell.CommandSudo, mkdirCommandConstant, parentsFlagConstant, liquibaseHomeConstant)
		builder.packageTask(extractLiquibaseTaskConstant, execshell.CommandSudo, tarCommandConstant, extractFlagsConstant, liquibaseArchivePathConstant, directoryFlagConstant, liquibaseHomeConstant)
		builder.packageTask(symlinkLiquibaseTaskConstant, execshell.CommandSudo, linkCommandConstant, symbolicForceFlagConstant, liquibaseExecutableConstant, liquibaseLinkConstant)
		builder.packageTask(chmodLiquibaseTaskConstant, execshell.CommandSudo, chmodCommandConstant, executableModeConstant, liquibaseLinkConstant)
		builder.packageTask(cleanupTaskNameConstant, execshell.CommandRemove, liquibaseArchivePathConstant)
	})
	builder.gotestsum(missing.gotestsum, locator)

	if missing.podman {
		builder.task(&builder.plan.SocketTasks, enableSocketTaskNameConstant, execshell.CommandSystemctl, systemctlUserFlagConstant, systemctlEnableConstant, podmanSocketUnitConstant)
		builder.task(&builder.plan.SocketTasks, startSocketTaskNameConstant, execshell.CommandSystemctl, systemctlUserFlagConstant, systemctlStartConstant, podmanSocketUnitConstant)
	}
	return builder.plan, builder.buildError
}

// BuildMacOSPlan plans Homebrew installs. Homebrew itself must already be present.
func BuildMacOSPlan(locator workspace.ToolLocator) (Plan, error) {
	locator = workspace.ResolveToolLocator(locator)
	if requireError := workspace.RequireTool(locator, workspace.OperationGetTools, execshell.CommandBrew, brewRequiredMessageConstant); requireError != nil {
		return Plan{}, requireError
	}
	missing := inventory(locator)
	if missing.none() {
		return Plan{}, nil
	}

	builder := &planBuilder{}
	brewInstall := func(packageName string) func() {
		return func() {
			builder.packageTask(brewTaskPrefixConstant+packageName, execshell.CommandBrew, brewInstallSubcommandConstant, packageName)
		}
	}
	builder.step(missing.podman, containerIconConstant, podmanLabelConstant, brewInstall(podmanPackageConstant))
	builder.step(missing.podmanCompose, containerIconConstant, podmanComposeLabelConstant, brewInstall(podmanComposePackageConstant))
	builder.step(missing.liquibase, liquibaseIconConstant, liquibaseLabelConstant, brewInstall(brewLiquibasePackageConstant))
	builder.step(missing.postgres, postgresIconConstant, postgresClientLabelConstant, brewInstall(brewPostgresPackageConstant))
	builder.gotestsum(missing.gotestsum, locator)
	return builder.plan, builder.buildError
}
