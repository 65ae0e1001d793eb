package observe

import (
	"errors"
	"fmt"
)

// ValidationError reports an invalid request parameter. It is always
// returned before any I/O is attempted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ResourceNotFoundError reports that a single named resource does not
// exist. List operations never return it; an empty list is the answer
// to "which items exceed the threshold" when none do.
type ResourceNotFoundError struct {
	Resource string
	ID       string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// IsNotFound reports whether err is a ResourceNotFoundError.
func IsNotFound(err error) bool {
	var nf *ResourceNotFoundError
	return errors.As(err, &nf)
}

// APIError reports that an operation failed on every available path.
type APIError struct {
	Op  string
	Err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
