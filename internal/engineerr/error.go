// Package engineerr is the closed error taxonomy for the workflow engine.
// Every failure the engine reports to a caller carries one of these Kinds,
// so host code can branch on failure category with errors.As instead of
// string matching.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind is a closed set of failure categories. New values are added here
// deliberately, never inferred from ad-hoc error strings elsewhere.
type Kind string

const (
	// ConfigurationError covers malformed tool or step configuration; the
	// registry raises it when an LLM tool call carries no
	// prompt_template_id. An unregistered tool is reported as
	// ToolExecutionError, not as this kind.
	ConfigurationError Kind = "configuration_error"

	// InputValidationError covers job inputs that don't conform to the
	// workflow's declared input schema at submission time.
	InputValidationError Kind = "input_validation_error"

	// MappingValidationError covers output mappings that write the same
	// destination path twice, or bind incompatible schemas.
	MappingValidationError Kind = "mapping_validation_error"

	// ToolExecutionError covers a registered tool's Execute returning an
	// error, timing out, or producing output that fails its declared
	// output schema.
	ToolExecutionError Kind = "tool_execution_error"

	// InfiniteLoopSuspected is raised when a job's run loop hits the
	// safety cap on total steps executed, independent of any individual
	// step's own jump budget.
	InfiniteLoopSuspected Kind = "infinite_loop_suspected"

	// Cancelled covers a job stopped by an explicit cancellation request
	// rather than a failure.
	Cancelled Kind = "cancelled"
)

// Error wraps a Kind with a human-readable message and an optional
// underlying cause, and supports errors.Is/errors.As through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes two *Error values of the same Kind compare equal under
// errors.Is, whatever their messages or causes. A bare Kind is not an
// error value and cannot be passed to errors.Is; kind checks go through
// KindOf(err).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error carrying an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
