package shared

import "errors"

// Error categories. Domain errors match one of these through their Is method,
// so adapters can branch on the category without knowing the concrete type.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrAlreadySettled    = errors.New("already settled")
	ErrUnavailable       = errors.New("unavailable")
)

// InvalidInputError carries the field that failed validation
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return "invalid " + e.Field + ": " + e.Reason
}

// Is implements the errors.Is interface for InvalidInputError
func (e InvalidInputError) Is(target error) bool {
	if target == ErrInvalidInput {
		return true
	}
	t, ok := target.(InvalidInputError)
	if !ok {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

// NewInvalidInput builds an InvalidInputError
func NewInvalidInput(field, reason string) error {
	return InvalidInputError{Field: field, Reason: reason}
}

// Category returns the name of the category err belongs to, or "internal" when
// err is not a domain error. Used for metric labels and API error codes.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
