package attendance

import (
	"errors"
	"fmt"
)

// ErrDuplicateFace means the enrollment image matched an already-enrolled
// identity's reference image.
var ErrDuplicateFace = errors.New("face already registered")

// ValidationError reports missing or malformed request input. Nothing is
// persisted when validation fails.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether an error is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
