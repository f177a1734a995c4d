package pokemon

import "errors"

// ValidationError reports caller-supplied input that violates a
// precondition. The HTTP boundary maps it to a client error response.
type ValidationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
