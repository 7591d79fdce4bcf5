package graph

import (
	"errors"
	"fmt"

	"github.com/dukex/docflow/pkg/registry"
)

// Structural errors. They are always recoverable: a failed operation leaves
// the graph unchanged.
var (
	ErrUnknownStepType            = registry.ErrUnknownStepType
	ErrUnknownStepReference       = errors.New("unknown step reference")
	ErrUnknownConnectionReference = errors.New("unknown connection reference")
	ErrConnectorMismatch          = errors.New("connector mismatch")
	ErrTerminalStepAsSource       = errors.New("terminal step cannot be a connection source")
	ErrDuplicateFieldName         = errors.New("duplicate field name")
	ErrInvalidStepConfig          = errors.New("invalid step config")
	ErrDuplicateStepID            = errors.New("duplicate step id")
	ErrDuplicateConnectionID      = errors.New("duplicate connection id")
)

// Error wraps a structural error with the operation and references involved.
type Error struct {
	Op           string // Operation being performed (e.g. "AddStep", "Connect")
	StepID       string // Step id if applicable
	ConnectionID string // Connection id if applicable
	Err          error  // Underlying error
}

func (e *Error) Error() string {
	switch {
	case e.ConnectionID != "":
		return fmt.Sprintf("%s failed for connection %s: %v", e.Op, e.ConnectionID, e.Err)
	case e.StepID != "":
		return fmt.Sprintf("%s failed for step %s: %v", e.Op, e.StepID, e.Err)
	default:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func stepError(op, stepID string, err error) *Error {
	return &Error{Op: op, StepID: stepID, Err: err}
}

// IsStructuralError reports whether err is one of the graph's structural errors.
func IsStructuralError(err error) bool {
	return errors.Is(err, ErrUnknownStepType) ||
		errors.Is(err, ErrUnknownStepReference) ||
		errors.Is(err, ErrUnknownConnectionReference) ||
		errors.Is(err, ErrConnectorMismatch) ||
		errors.Is(err, ErrTerminalStepAsSource) ||
		errors.Is(err, ErrDuplicateFieldName) ||
		errors.Is(err, ErrInvalidStepConfig) ||
		errors.Is(err, ErrDuplicateStepID) ||
		errors.Is(err, ErrDuplicateConnectionID)
}

// IsReferenceError reports whether err is caused by a missing step or connection.
func IsReferenceError(err error) bool {
	return errors.Is(err, ErrUnknownStepReference) ||
		errors.Is(err, ErrUnknownConnectionReference)
}
