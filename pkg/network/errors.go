package network

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateID     = errors.New("duplicate id")
	ErrUnknownEndpoint = errors.New("unknown endpoint")
	ErrInvalidSelfLoop = errors.New("route endpoints must differ")
	ErrInvalidWeight   = errors.New("distance and stops must be non-negative")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error provides structured error information for network operations.
type Error struct {
	Op      string // Operation that failed (e.g., "AddRoute", "RemoveAirport")
	Entity  string // "airport", "route" or "airline"
	ID      int64
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s %d (%s): %v", e.Op, e.Entity, e.ID, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s %d: %v", e.Op, e.Entity, e.ID, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building Errors.
type ErrorBuilder struct {
	err Error
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: Error{Op: op}}
}

// Airport sets the entity to "airport" with the given ID.
func (b *ErrorBuilder) Airport(id int64) *ErrorBuilder {
	b.err.Entity = "airport"
	b.err.ID = id
	return b
}

// Route sets the entity to "route" with the given ID.
func (b *ErrorBuilder) Route(id int64) *ErrorBuilder {
	b.err.Entity = "route"
	b.err.ID = id
	return b
}

// Airline sets the entity to "airline" with the given ID.
func (b *ErrorBuilder) Airline(id int64) *ErrorBuilder {
	b.err.Entity = "airline"
	b.err.ID = id
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	err := b.err
	return &err
}

func airportNotFound(op string, id int64) error {
	return NewError(op).Airport(id).Cause(ErrNotFound).Err()
}

func routeNotFound(op string, id int64) error {
	return NewError(op).Route(id).Cause(ErrNotFound).Err()
}

func airlineNotFound(op string, id int64) error {
	return NewError(op).Airline(id).Cause(ErrNotFound).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput returns true for errors caused by bad caller input rather
// than missing entities or conflicts.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrUnknownEndpoint) ||
		errors.Is(err, ErrInvalidSelfLoop) ||
		errors.Is(err, ErrInvalidWeight) ||
		errors.Is(err, ErrInvalidArgument)
}
