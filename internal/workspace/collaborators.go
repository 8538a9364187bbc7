package workspace

import (
	"context"
	"fmt"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/pkg/taskrunner"
)

const (
	toolMissingTemplateConstant = "%s is not installed.\n%s"
	getToolsRemediationConstant = "Run: cwrdd-make get-tools"
)

// TaskExecutor runs tasks with relayed output.
type TaskExecutor interface {
	Execute(executionContext context.Context, task taskrunner.Task) error
	RunTasks(executionContext context.Context, tasks []taskrunner.Task) error
}

// InspectionExecutor runs a command and captures its output.
type InspectionExecutor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// ToolLocator reports whether an executable is available.
type ToolLocator func(name string) bool

// ResolveToolLocator returns locator or the PATH-backed default.
func ResolveToolLocator(locator ToolLocator) ToolLocator {
	if locator != nil {
		return locator
	}
	return taskrunner.CommandExists
}

// RequireTool fails with ErrToolMissing when tool is unavailable. An empty remediation points at get-tools.
func RequireTool(locator ToolLocator, operation Operation, tool execshell.CommandName, remediation string) error {
	if ResolveToolLocator(locator)(string(tool)) {
		return nil
	}
	if len(remediation) == 0 {
		remediation = getToolsRemediationConstant
	}
	return WrapMessage(operation, string(tool), ErrToolMissing, fmt.Sprintf(toolMissingTemplateConstant, tool, remediation))
}
