package build

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/internal/workspace"
	"github.com/cwrdd/cwrdd-make/pkg/taskrunner"
)

const (
	goRemediationConstant           = "Install Go: https://go.dev/dl/"
	buildBannerConstant             = "🏗️  Building cwrdd application\n\n"
	testBannerConstant              = "🧪 Running tests for cwrdd application\n\n"
	repositoryPathTemplateConstant  = "Repository path: %s\n"
	applicationPathTemplateConstant = "App path: %s\n\n"
	buildCompletedMessageConstant   = "🎉 Build completed successfully!\n"
	testsPassedMessageConstant      = "🎉 All tests passed!\n"
	gotestsumMissingWarningConstant = "⚠️  gotestsum not found. Using go test instead.\n   Install gotestsum for readable output: go install gotest.tools/gotestsum@latest\n\n"
	buildTaskNameConstant           = "go build"
	goTestTaskNameConstant          = "go test"
	gotestsumTaskNameConstant       = "gotestsum"
	buildSubcommandConstant         = "build"
	testSubcommandConstant          = "test"
	allPackagesPatternConstant      = "./..."
	gotestsumFormatFlagConstant     = "--format"
	gotestsumFormatValueConstant    = "testname"
	gotestsumSeparatorConstant      = "--"
	executorMissingMessageConstant  = "build service task executor not configured"
)

// ErrTaskExecutorNotConfigured indicates the service was constructed without a task executor.
var ErrTaskExecutorNotConfigured = errors.New(executorMissingMessageConstant)

// Dependencies describes the collaborators required by the build service.
type Dependencies struct {
	Layout       workspace.Layout
	TaskExecutor workspace.TaskExecutor
	ToolLocator  workspace.ToolLocator
	Output       io.Writer
}

// Service compiles and tests the Go application under <root>/app.
type Service struct {
	layout       workspace.Layout
	taskExecutor workspace.TaskExecutor
	toolLocator  workspace.ToolLocator
	output       io.Writer
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
	return &Service{
		layout:       dependencies.Layout,
		taskExecutor: dependencies.TaskExecutor,
		toolLocator:  workspace.ResolveToolLocator(dependencies.ToolLocator),
		output:       output,
	}, nil
}

// Build runs `go build ./...` in the application directory.
func (service *Service) Build(executionContext context.Context) error {
	fmt.Fprint(service.output, buildBannerConstant)

	if requireError := workspace.RequireTool(service.toolLocator, workspace.OperationBuild, execshell.CommandGo, goRemediationConstant); requireError != nil {
		return requireError
	}

	applicationDirectory, preparationError := service.prepareApplicationDirectory()
	if preparationError != nil {
		return preparationError
	}

	buildTask, taskError := taskrunner.NewTaskBuilder(buildTaskNameConstant, string(execshell.CommandGo)).
		WithArguments(buildSubcommandConstant, allPackagesPatternConstant).
		WithWorkingDirectory(applicationDirectory).
		Build()
	if taskError != nil {
		return taskError
	}

	if runError := service.taskExecutor.RunTasks(executionContext, []taskrunner.Task{buildTask}); runError != nil {
		return runError
	}

	fmt.Fprint(service.output, buildCompletedMessageConstant)
	return nil
}

// Test runs the application's tests through gotestsum when installed, falling back to `go test`.
func (service *Service) Test(executionContext context.Context) error {
	fmt.Fprint(service.output, testBannerConstant)

	if requireError := workspace.RequireTool(service.toolLocator, workspace.OperationTest, execshell.CommandGo, goRemediationConstant); requireError != nil {
		return requireError
	}

	useGotestsum := service.toolLocator(string(execshell.CommandGotestsum))
	if !useGotestsum {
		fmt.Fprint(service.output, gotestsumMissingWarningConstant)
	}

	applicationDirectory, preparationError := service.prepareApplicationDirectory()
	if preparationError != nil {
		return preparationError
	}

	testTaskBuilder := taskrunner.NewTaskBuilder(goTestTaskNameConstant, string(execshell.CommandGo)).
		WithArguments(testSubcommandConstant, allPackagesPatternConstant)
	if useGotestsum {
		testTaskBuilder = taskrunner.NewTaskBuilder(gotestsumTaskNameConstant, string(execshell.CommandGotestsum)).
			WithArguments(gotestsumFormatFlagConstant, gotestsumFormatValueConstant, gotestsumSeparatorConstant, allPackagesPatternConstant)
	}

	testTask, taskError := testTaskBuilder.WithWorkingDirectory(applicationDirectory).Build()
	if taskError != nil {
		return taskError
	}

	if runError := service.taskExecutor.RunTasks(executionContext, []taskrunner.Task{testTask}); runError != nil {
		return runError
	}

	fmt.Fprint(service.output, testsPassedMessageConstant)
	return nil
}

func (service *Service) prepareApplicationDirectory() (string, error) {
	applicationDirectory := service.layout.ApplicationDirectory()
	if verifyError := taskrunner.VerifyDirectory(applicationDirectory); verifyError != nil {
		return "", verifyError
	}

	fmt.Fprintf(service.output, repositoryPathTemplateConstant, service.layout.Root())
	fmt.Fprintf(service.output, applicationPathTemplateConstant, applicationDirectory)
	return applicationDirectory, nil
}
