package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a request references a job_id that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreFault wraps any failure of the underlying store, including an
	// open circuit breaker. Callers surface it as an internal error.
	ErrStoreFault = errors.New("store fault")
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// UnknownFieldsError rejects an update naming fields outside
// domain.UpdatableFields. Nothing is applied.
type UnknownFieldsError struct {
	Fields []string
}

func (e *UnknownFieldsError) Error() string {
	return "Unknown fields: " + strings.Join(e.Fields, ", ")
}

// IsValidation reports whether err is one of the input validation errors.
func IsValidation(err error) bool {
	var (
		ve  ValidationError
		ves ValidationErrors
		ufe *UnknownFieldsError
	)
	return errors.As(err, &ve) || errors.As(err, &ves) || errors.As(err, &ufe)
}

func invalid(field, format string, args ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func storeFault(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreFault, err)
}
