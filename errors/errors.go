/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an item is not found
	ErrNotFound = errors.New("item not found")

	// ErrInvalidInput is returned when a value fails coercion or validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned by a store when a conditional write fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrSchema is returned when a schema declaration is malformed or misused
	ErrSchema = errors.New("schema error")

	// ErrVersion is returned when no migration detector recognizes a payload
	ErrVersion = errors.New("unknown payload version")

	// ErrConflict is returned when a protected write finds the stored item changed
	ErrConflict = errors.New("conflicting concurrent write")

	// ErrOverwrite is returned when a protected create finds an item already there
	ErrOverwrite = errors.New("item already exists")

	// ErrMaxRetriesExceeded is returned when key allocation gives up
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// NotFoundError represents an error when an item is not found
type NotFoundError struct {
	Table string
	Key   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s item with key %s not found", e.Table, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents a value that failed coercion or validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ValidationErrors aggregates the failures of a whole-entity validation.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError is the store-level signal that a conditional write was rejected
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// SchemaError reports a malformed schema or an operation the schema forbids
type SchemaError struct {
	Kind    string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("schema error in %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("schema error: %s", e.Message)
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// VersionError is returned when a payload matches none of the version detectors
type VersionError struct {
	Kind string
}

func (e *VersionError) Error() string {
	if e.Kind == "" {
		return "could not detect payload version"
	}
	return fmt.Sprintf("could not detect payload version for %s", e.Kind)
}

func (e *VersionError) Is(target error) bool {
	return target == ErrVersion
}

// ConflictError means the stored item no longer matches the last snapshot.
type ConflictError struct {
	Table     string
	Operation string
	Cause     error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s of %s item: stored item changed since last read", e.Operation, e.Table)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func (e *ConflictError) Unwrap() error {
	return e.Cause
}

// OverwriteError is a ConflictError raised when a protected create finds an
// item already stored under the same key.
type OverwriteError struct {
	ConflictError
}

func (e *OverwriteError) Error() string {
	return fmt.Sprintf("refusing to overwrite existing %s item", e.Table)
}

func (e *OverwriteError) Is(target error) bool {
	return target == ErrOverwrite || target == ErrConflict
}

// Unwrap exposes the embedded ConflictError so errors.As can reach it.
func (e *OverwriteError) Unwrap() error {
	return &e.ConflictError
}

// MaxRetriesExceededError is returned when the key allocator exhausts its retries
type MaxRetriesExceededError struct {
	Table    string
	Attempts int
}

func (e *MaxRetriesExceededError) Error() string {
	return fmt.Sprintf("could not allocate a key in %s after %d attempts", e.Table, e.Attempts)
}

func (e *MaxRetriesExceededError) Is(target error) bool {
	return target == ErrMaxRetriesExceeded
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(table, key string) error {
	return &NotFoundError{Table: table, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewSchemaError creates a new SchemaError
func NewSchemaError(kind, format string, args ...any) error {
	return &SchemaError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewVersionError creates a new VersionError
func NewVersionError(kind string) error {
	return &VersionError{Kind: kind}
}

// NewConflictError creates a new ConflictError
func NewConflictError(table, operation string, cause error) error {
	return &ConflictError{Table: table, Operation: operation, Cause: cause}
}

// NewOverwriteError creates a new OverwriteError
func NewOverwriteError(table string, cause error) error {
	return &OverwriteError{ConflictError{Table: table, Operation: "save", Cause: cause}}
}

// NewMaxRetriesExceededError creates a new MaxRetriesExceededError
func NewMaxRetriesExceededError(table string, attempts int) error {
	return &MaxRetriesExceededError{Table: table, Attempts: attempts}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsSchemaError checks if an error is a schema error
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

// IsVersionError checks if an error is a version detection error
func IsVersionError(err error) bool {
	return errors.Is(err, ErrVersion)
}

// IsConflict checks if an error is a conflict (overwrite errors included)
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsOverwrite checks if an error is an overwrite error
func IsOverwrite(err error) bool {
	return errors.Is(err, ErrOverwrite)
}

// IsMaxRetriesExceeded checks if an error is a key allocation exhaustion
func IsMaxRetriesExceeded(err error) bool {
	return errors.Is(err, ErrMaxRetriesExceeded)
}
