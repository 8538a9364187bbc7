package taskrunner

import (
	"errors"
	"strings"
)

const executableMissingMessageConstant = "task executable not provided"

// ErrExecutableMissing indicates a task was built without an executable.
var ErrExecutableMissing = errors.New(executableMissingMessageConstant)

// EnvironmentVariable is a single environment override applied to a task's child process.
type EnvironmentVariable struct {
	Name  string
	Value string
}

// Task describes one external process invocation. The zero value is not runnable; use TaskBuilder.
type Task struct {
	displayName      string
	executable       string
	arguments        []string
	workingDirectory string
	environment      []EnvironmentVariable
}

// DisplayName returns the label used when reporting the task.
func (task Task) DisplayName() string {
	return task.displayName
}

// Executable returns the program resolved against PATH.
func (task Task) Executable() string {
	return task.executable
}

// Arguments returns a copy of the ordered argument list.
func (task Task) Arguments() []string {
	return cloneStrings(task.arguments)
}

// WorkingDirectory returns the child's working directory, empty when inherited.
func (task Task) WorkingDirectory() string {
	return task.workingDirectory
}

// Environment returns a copy of the environment overrides in the order they were added.
func (task Task) Environment() []EnvironmentVariable {
	return cloneEnvironment(task.environment)
}

// EnvironmentOverrides collapses the overrides into a map; later duplicates win.
func (task Task) EnvironmentOverrides() map[string]string {
	if len(task.environment) == 0 {
		return nil
	}
	overrides := make(map[string]string, len(task.environment))
	for _, variable := range task.environment {
		overrides[variable.Name] = variable.Value
	}
	return overrides
}

// CommandLine renders the executable and its arguments separated by spaces.
func (task Task) CommandLine() string {
	parts := make([]string, 0, len(task.arguments)+1)
	parts = append(parts, task.executable)
	parts = append(parts, task.arguments...)
	return strings.Join(parts, " ")
}

// TaskBuilder accumulates task settings. Every setter returns a new builder, so a
// partially configured builder can be shared and extended without aliasing.
type TaskBuilder struct {
	task Task
}

// NewTaskBuilder starts a task with a display name and an executable.
func NewTaskBuilder(displayName string, executable string) TaskBuilder {
	return TaskBuilder{task: Task{
		displayName: strings.TrimSpace(displayName),
		executable:  strings.TrimSpace(executable),
	}}
}

// WithArguments appends arguments, passed verbatim to the executable.
func (builder TaskBuilder) WithArguments(arguments ...string) TaskBuilder {
	combined := make([]string, 0, len(builder.task.arguments)+len(arguments))
	combined = append(combined, builder.task.arguments...)
	combined = append(combined, arguments...)
	builder.task.arguments = combined
	return builder
}

// WithWorkingDirectory sets the child's working directory.
func (builder TaskBuilder) WithWorkingDirectory(directoryPath string) TaskBuilder {
	builder.task.workingDirectory = directoryPath
	return builder
}

// WithEnvironment adds an override merged on top of the inherited environment.
func (builder TaskBuilder) WithEnvironment(name string, value string) TaskBuilder {
	combined := make([]EnvironmentVariable, 0, len(builder.task.environment)+1)
	combined = append(combined, builder.task.environment...)
	combined = append(combined, EnvironmentVariable{Name: name, Value: value})
	builder.task.environment = combined
	return builder
}

// Build validates the accumulated settings and returns an immutable Task.
func (builder TaskBuilder) Build() (Task, error) {
	if len(builder.task.executable) == 0 {
		return Task{}, ErrExecutableMissing
	}

	task := Task{
		displayName:      builder.task.displayName,
		executable:       builder.task.executable,
		arguments:        cloneStrings(builder.task.arguments),
		workingDirectory: builder.task.workingDirectory,
		environment:      cloneEnvironment(builder.task.environment),
	}
	if len(task.displayName) == 0 {
		task.displayName = task.executable
	}
	return task, nil
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	cloned := make([]string, len(values))
	copy(cloned, values)
	return cloned
}

func cloneEnvironment(variables []EnvironmentVariable) []EnvironmentVariable {
	if len(variables) == 0 {
		return nil
	}
	cloned := make([]EnvironmentVariable, len(variables))
	copy(cloned, variables)
	return cloned
}
