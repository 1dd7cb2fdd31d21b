// Package pkg holds the error taxonomy and the JSON response envelope shared
// by every layer.
package pkg

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Services wrap them with context:
//
//	fmt.Errorf("%w: server not found", pkg.ErrNotFound)
//
// and the HTTP layer maps them to status codes with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrInternal      = errors.New("internal error")
)

// FieldError describes one failed input check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every failed check of a request body so the
// client sees all of them at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrBadRequest }

// Add records a failed check.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns nil when no check failed. Request Validate methods end with
// `return v.Err()`.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ConflictError is an ErrAlreadyExists that carries data the caller can act
// on, such as the id of the existing resource.
type ConflictError struct {
	Message string
	Data    any
}

func (e *ConflictError) Error() string { return "already exists: " + e.Message }

func (e *ConflictError) Unwrap() error { return ErrAlreadyExists }

// NewConflict builds a ConflictError with a formatted message.
func NewConflict(data any, format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...), Data: data}
}
