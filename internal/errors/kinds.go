package errors

import "fmt"

// ValidationError is returned when required input is missing or malformed.
// The message is safe to show to the user.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Public() string {
	return e.Message
}

func Validation(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// UpstreamError wraps a non-2xx or malformed response of an external service.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Provider, e.Status, e.Message)
}

func (e *UpstreamError) Public() string {
	return e.Message
}

// TimeoutError is returned when a call exceeded its fixed deadline.
type TimeoutError struct {
	Message string
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *TimeoutError) Public() string {
	return e.Message
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// ConstraintError reports a store level failure such as a unique or foreign key violation.
type ConstraintError struct {
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %q violated: %v", e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// ConflictError is returned when an update carried a stale version token.
type ConflictError struct {
	Expected int
	Actual   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict: expected %d, found %d", e.Expected, e.Actual)
}

func (e *ConflictError) Public() string {
	return "This bookmark was changed somewhere else. Reload and try again."
}

// PublicMessage returns the user facing text carried by err, or fallback.
func PublicMessage(err error, fallback string) string {
	var pe interface{ Public() string }
	if As(err, &pe) {
		if msg := pe.Public(); msg != "" {
			return msg
		}
	}
	return fallback
}
