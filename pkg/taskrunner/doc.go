// Package taskrunner runs external processes as named tasks. A Task is built once
// through TaskBuilder and is immutable afterwards; Runner.Execute announces it,
// relays the child's stdout and stderr line by line while it runs, and converts
// the outcome into nil, a SpawnError, or an ExitError. Runner.RunTasks chains
// tasks fail-fast, while CommandExists and VerifyDirectory act as precondition
// gates for the command layer.
package taskrunner
