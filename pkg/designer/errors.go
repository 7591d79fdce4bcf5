package designer

import (
	"errors"
	"fmt"

	"github.com/dukex/docflow/pkg/validation"
)

var (
	// ErrBusy is returned by Save while another save of the same session is in flight.
	ErrBusy = errors.New("a save is already in progress")

	// ErrSessionClosed is returned by every operation on a closed session, and
	// by saves and loads whose session was closed before they completed.
	ErrSessionClosed = errors.New("session is closed")

	// ErrLoadSuperseded is returned by a load whose result was discarded
	// because a later load was started on the same session.
	ErrLoadSuperseded = errors.New("load superseded by a later load")

	// ErrSessionNotFound is returned by the manager for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
)

// SaveRejectedError is returned when validation blocks a save.
type SaveRejectedError struct {
	Report validation.Report
}

func (e *SaveRejectedError) Error() string {
	return fmt.Sprintf("save rejected: %v", e.Report.Err())
}

func (e *SaveRejectedError) Unwrap() error {
	return validation.ErrValidationFailed
}

// IsBusy checks if an error indicates a save was refused because one is pending.
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsDiscarded checks if an error indicates a load or save result was dropped
// because the session moved on.
func IsDiscarded(err error) bool {
	return errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrLoadSuperseded)
}
