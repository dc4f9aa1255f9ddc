// Package errors holds the typed error taxonomy shared by the registry,
// the provisioning pipeline and the HTTP boundary.
package errors

import (
	"errors"
	"fmt"
)

// ErrEngineUnavailable is returned when the database engine connection is
// fast-failing (circuit open) and no DDL was attempted.
var ErrEngineUnavailable = errors.New("database engine unavailable")

// ConflictError signals a uniqueness violation: company name, database
// name, or email already in use where uniqueness is required.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q already in use", e.Field, e.Value)
}

// NotFoundError signals an unknown tenant or identity.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// ProvisionError signals that physical database creation failed.
type ProvisionError struct {
	Database string
	Err      error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("create database %q: %v", e.Database, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// SchemaError signals that schema application failed, naming the migration
// that broke so an operator can re-run the step in isolation.
type SchemaError struct {
	Migration string
	Err       error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("apply migration %s: %v", e.Migration, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// SeedError signals that admin seeding failed. The already-exists no-op
// case is not an error.
type SeedError struct {
	Email string
	Err   error
}

func (e *SeedError) Error() string {
	return fmt.Sprintf("seed admin %q: %v", e.Email, e.Err)
}

func (e *SeedError) Unwrap() error { return e.Err }

// SchemaNotReadyError signals that seeding was attempted before the tenant
// schema exists.
type SchemaNotReadyError struct {
	Table string
}

func (e *SchemaNotReadyError) Error() string {
	return fmt.Sprintf("table %q does not exist, schema may not have been applied", e.Table)
}

// ValidationError signals malformed input at the boundary.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validation builds a ValidationError from a format string.
func Validation(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
