package workspace

import (
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwrdd/cwrdd-make/pkg/taskrunner"
)

// CommandDependencies carries the providers and overrides shared by every workflow command builder.
type CommandDependencies struct {
	LoggerProvider               func() *zap.Logger
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() Configuration
	TaskExecutor                 TaskExecutor
	InspectionExecutor                InspectionExecutor
	ToolLocator                  ToolLocator
}

// ResolvedDependencies are the collaborators a workflow service needs for one command invocation.
type ResolvedDependencies struct {
	Layout        Layout
	TaskExecutor  TaskExecutor
	InspectionExecutor InspectionExecutor
	ToolLocator   ToolLocator
	Output        io.Writer
	Errors        io.Writer
	Logger        *zap.Logger
}

// Resolve builds the workspace layout and fills unset collaborators with process-backed defaults.
func (dependencies CommandDependencies) Resolve(command *cobra.Command) (ResolvedDependencies, error) {
	configuration := DefaultConfiguration()
	if dependencies.ConfigurationProvider != nil {
		configuration = dependencies.ConfigurationProvider()
	}
	layout, layoutError := configuration.Layout()
	if layoutError != nil {
		return ResolvedDependencies{}, layoutError
	}

	taskDependencies, dependenciesError := taskrunner.BuildDependencies(
		taskrunner.DependenciesConfig{
			LoggerProvider:               dependencies.LoggerProvider,
			HumanReadableLoggingProvider: dependencies.HumanReadableLoggingProvider,
		},
		taskrunner.DependenciesOptions{Command: command},
	)
	if dependenciesError != nil {
		return ResolvedDependencies{}, dependenciesError
	}

	resolved := ResolvedDependencies{
		Layout:             layout,
		TaskExecutor:       taskDependencies.Runner,
		InspectionExecutor: taskDependencies.InspectionExecutor,
		ToolLocator:        ResolveToolLocator(dependencies.ToolLocator),
		Output:             taskDependencies.Output,
		Errors:             taskDependencies.Errors,
		Logger:             zap.NewNop(),
	}
	if dependencies.TaskExecutor != nil {
		resolved.TaskExecutor = dependencies.TaskExecutor
	}
	if dependencies.InspectionExecutor != nil {
		resolved.InspectionExecutor = dependencies.InspectionExecutor
	}
	if dependencies.LoggerProvider != nil {
		if logger := dependencies.LoggerProvider(); logger != nil {
			resolved.Logger = logger
		}
	}
	return resolved, nil
}
