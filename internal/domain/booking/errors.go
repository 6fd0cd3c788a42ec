package booking

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an id does not resolve to an editable
// record. Soft-deleted appointments count as not found for updates.
var ErrNotFound = errors.New("record not found")

// ValidationError reports a missing or malformed field. The message is
// user-facing; the caller must correct the input and resubmit.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError reports that the requested slot is already taken. The user
// must pick different values and resubmit; the server never retries.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

const (
	msgSlotTaken   = "the requested slot is already booked; please choose a different time"
	msgSlotBlocked = "the requested slot falls within a blocked period; please choose a different time"
)
