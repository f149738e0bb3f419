package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// MissingInputError is returned when an operation is called without an input it cannot do without.
type MissingInputError struct {
	Field string
}

func NewMissingInputError(field string) error {
	return &MissingInputError{Field: field}
}

func (err MissingInputError) Error() string {
	return err.Field + " is required"
}

type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

// StateError means the operation is not permitted in the current lifecycle state.
type StateError struct {
	Msg string
}

func NewStateError(format string, args ...interface{}) error {
	return &StateError{Msg: fmt.Sprintf(format, args...)}
}

func (err StateError) Error() string {
	return err.Msg
}

// ConflictError means the operation would break a uniqueness rule.
type ConflictError struct {
	Msg string
}

func NewConflictError(format string, args ...interface{}) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

func (err ConflictError) Error() string {
	return err.Msg
}

// EnrollmentError is returned when a group has fewer students than its minimum.
type EnrollmentError struct {
	Required int
	Current  int
}

func NewEnrollmentError(required, current int) error {
	return &EnrollmentError{Required: required, Current: current}
}

func (err EnrollmentError) Error() string {
	return fmt.Sprintf("minimum %d students required, current: %d", err.Required, err.Current)
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
