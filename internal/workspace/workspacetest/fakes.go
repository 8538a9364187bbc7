// Package workspacetest provides recording collaborators for workflow command tests.
package workspacetest

import (
	"context"
	"strings"
	"sync"

	"github.com/cwrdd/cwrdd-make/internal/execshell"
	"github.com/cwrdd/cwrdd-make/pkg/taskrunner"
)

// RecordingTaskExecutor records every task it is asked to run and fails tasks whose display name is mapped in Failures.
type RecordingTaskExecutor struct {
	mutex    sync.Mutex
	Tasks    []taskrunner.Task
	Failures map[string]error
}

// Execute records the task and returns the configured failure, if any.
func (executor *RecordingTaskExecutor) Execute(_ context.Context, task taskrunner.Task) error {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	executor.Tasks = append(executor.Tasks, task)
	return executor.Failures[task.DisplayName()]
}

// RunTasks records tasks in order and stops at the first configured failure.
func (executor *RecordingTaskExecutor) RunTasks(executionContext context.Context, tasks []taskrunner.Task) error {
	for _, task := range tasks {
		if executionError := executor.Execute(executionContext, task); executionError != nil {
			return executionError
		}
	}
	return nil
}

// CommandLines renders each recorded task as "<exe> <args>".
func (executor *RecordingTaskExecutor) CommandLines() []string {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	commandLines := make([]string, 0, len(executor.Tasks))
	for _, task := range executor.Tasks {
		commandLines = append(commandLines, task.CommandLine())
	}
	return commandLines
}

// InspectionResponse is the scripted outcome for one inspection invocation.
type InspectionResponse struct {
	Result execshell.ExecutionResult
	Error  error
}

// ScriptedInspectionExecutor returns responses keyed by the longest matching "<name> <args>" prefix and records invocations.
type ScriptedInspectionExecutor struct {
	mutex     sync.Mutex
	Responses map[string][]InspectionResponse
	Commands  []execshell.ShellCommand
}

// Execute returns the next scripted response for the command. Exhausted scripts repeat their last response.
func (executor *ScriptedInspectionExecutor) Execute(_ context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	executor.Commands = append(executor.Commands, command)

	commandLine := Render(command)
	matchedPrefix := ""
	matched := false
	for prefix, responses := range executor.Responses {
		if len(responses) == 0 || !strings.HasPrefix(commandLine, prefix) {
			continue
		}
		if !matched || len(prefix) > len(matchedPrefix) {
			matchedPrefix = prefix
			matched = true
		}
	}
	if !matched {
		return execshell.ExecutionResult{}, nil
	}

	responses := executor.Responses[matchedPrefix]
	response := responses[0]
	if len(responses) > 1 {
		executor.Responses[matchedPrefix] = responses[1:]
	}
	if response.Error == nil && response.Result.ExitCode != 0 {
		return execshell.ExecutionResult{}, execshell.CommandFailedError{Command: command, Result: response.Result}
	}
	return response.Result, response.Error
}

// Count reports how many recorded inspections start with prefix.
func (executor *ScriptedInspectionExecutor) Count(prefix string) int {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	count := 0
	for _, command := range executor.Commands {
		if strings.HasPrefix(Render(command), prefix) {
			count++
		}
	}
	return count
}

// Render formats a command as "<name> <args>".
func Render(command execshell.ShellCommand) string {
	return strings.TrimSpace(string(command.Name) + " " + strings.Join(command.Details.Arguments, " "))
}

// Locator returns a ToolLocator reporting only the listed tools as installed.
func Locator(installedTools ...string) func(string) bool {
	installed := make(map[string]struct{}, len(installedTools))
	for _, tool := range installedTools {
		installed[tool] = struct{}{}
	}
	return func(name string) bool {
		_, found := installed[name]
		return found
	}
}
