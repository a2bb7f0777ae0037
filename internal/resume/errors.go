package resume

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrDialogClosed   = errors.New("dialog is not open")
	ErrFormInvalid    = errors.New("form is not ready to submit")
	ErrSubmitInFlight = errors.New("a submission is already in flight")
	ErrSubmitFailed   = errors.New("resume request failed")

	// ErrRejected is returned when the backend answers 2xx but does not
	// report success in its body.
	ErrRejected = errors.New("backend did not report success")
)

// StatusError carries a non-2xx response from the resume backend.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("resume backend returned status %d", e.StatusCode)
}
