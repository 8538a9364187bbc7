package workspace

import (
	stdErrors "errors"
	"fmt"
)

// Operation identifies the workflow command producing a contextual error.
type Operation string

// Workflow operations.
const (
	OperationBuild         Operation = "build"
	OperationTest          Operation = "test"
	OperationComposeUp     Operation = "up"
	OperationComposeDown   Operation = "down"
	OperationComposeLogs   Operation = "logs"
	OperationMigrateDiff   Operation = "migrate-diff"
	OperationMigrate       Operation = "migrate"
	OperationMigrateStatus Operation = "migrate-status"
	OperationRollback      Operation = "rollback"
	OperationSeed          Operation = "seed"
	OperationTrustCert     Operation = "trust-cert"
	OperationUntrustCert   Operation = "untrust-cert"
	OperationInstall       Operation = "install"
	OperationGetTools      Operation = "get-tools"
)

// Sentinel describes a stable error code shared across workflow commands.
type Sentinel string

// Error returns the sentinel code string.
func (sentinel Sentinel) Error() string {
	return string(sentinel)
}

var (
	// ErrToolMissing indicates a required external tool is not on PATH.
	ErrToolMissing Sentinel = "tool_missing"
	// ErrPrerequisiteMissing indicates a required file or directory is absent.
	ErrPrerequisiteMissing Sentinel = "prerequisite_missing"
	// ErrUnsupportedPlatform indicates the host operating system has no install plan.
	ErrUnsupportedPlatform Sentinel = "unsupported_platform"
	// ErrServiceNotReady indicates a container did not report readiness within the polling budget.
	ErrServiceNotReady Sentinel = "service_not_ready"
)

// OperationError annotates a workflow failure with the operation and the subject it concerns.
type OperationError struct {
	operation Operation
	subject   string
	err       error
	message   string
}

// Error renders the remediation message when present, otherwise the wrapped cause.
func (operationError OperationError) Error() string {
	detail := operationError.message
	if len(detail) == 0 {
		detail = fmt.Sprint(operationError.err)
	}
	if len(operationError.subject) == 0 {
		return fmt.Sprintf("%s: %s", operationError.operation, detail)
	}
	return fmt.Sprintf("%s[%s]: %s", operationError.operation, operationError.subject, detail)
}

// Unwrap exposes the underlying error chain.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the originating operation.
func (operationError OperationError) Operation() Operation {
	return operationError.operation
}

// Subject returns the tool or path related to the error.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code surfaces the sentinel code of the wrapped error when present.
func (operationError OperationError) Code() string {
	var sentinel Sentinel
	if stdErrors.As(operationError.err, &sentinel) {
		return string(sentinel)
	}
	return ""
}

// WrapMessage builds an OperationError carrying the sentinel and a human-readable remediation message.
func WrapMessage(operation Operation, subject string, sentinel Sentinel, message string) error {
	if len(message) == 0 {
		return OperationError{operation: operation, subject: subject, err: sentinel}
	}
	return OperationError{operation: operation, subject: subject, err: fmt.Errorf("%w: %s", sentinel, message), message: message}
}

// Wrap builds an OperationError around a lower-level cause.
func Wrap(operation Operation, subject string, cause error) error {
	return OperationError{operation: operation, subject: subject, err: cause}
}
