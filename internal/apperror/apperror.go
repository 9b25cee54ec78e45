// Package apperror defines the typed errors shared by the service and handler layers.
//
// Services return these errors (usually wrapped with fmt.Errorf("...: %w", err)).
// The handler layer maps the sentinel at the bottom of the chain to an HTTP status.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrBadRequest         = errors.New("bad request")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type AppError struct {
	Err     error  // sentinel, one of the Err* values above
	Message string // human-readable error message
	Field   string // optional: request field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing record, e.g. NotFound("Post", id).
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Field:   id,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation such as a duplicate email.
func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned by the token gate for a missing or unusable token.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// BadReference reports an identifier that cannot possibly name a record.
func BadReference(field, id string) *AppError {
	return &AppError{
		Err:     ErrBadRequest,
		Message: fmt.Sprintf("invalid %s %q", field, id),
		Field:   field,
	}
}

// InvalidCredentials does not say which half of the credentials was wrong.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "Invalid credentials",
	}
}

// FieldError is one failing field of a validated input.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors collects every failing field of a single input so the
// caller sees all problems at once instead of fixing them one per request.
//
//	var v apperror.ValidationErrors
//	if name == "" {
//	    v.Add("name", "Name is required")
//	}
//	if err := v.Err(); err != nil {
//	    return nil, err
//	}
type ValidationErrors struct {
	Fields []FieldError
}

func (v *ValidationErrors) Add(field, message string) {
	v.Fields = append(v.Fields, FieldError{Field: field, Message: message})
}

// Err returns nil when nothing failed, so it can end a validation block directly.
func (v *ValidationErrors) Err() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func (v *ValidationErrors) Unwrap() error {
	return ErrValidation
}

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
