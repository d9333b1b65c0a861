/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when attempting to create an entity that already exists
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoEntityType is returned when no entity type descriptor is registered for a Go type
	ErrNoEntityType = errors.New("no entity type registered")

	// ErrContextFailure is returned when a persistence context or its backing store is unusable
	ErrContextFailure = errors.New("persistence context failure")

	// ErrInvalidDate is returned by the date parser for values it cannot interpret
	ErrInvalidDate = errors.New("invalid date")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
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

// ContextFailureError wraps a failure of the persistence context (or the
// store behind it) during Op. It is never retried by callers in this module.
type ContextFailureError struct {
	Op  string
	Err error
}

func (e *ContextFailureError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("persistence context failure during %s", e.Op)
	}
	return fmt.Sprintf("persistence context failure during %s: %v", e.Op, e.Err)
}

func (e *ContextFailureError) Is(target error) bool {
	return target == ErrContextFailure
}

func (e *ContextFailureError) Unwrap() error {
	return e.Err
}

// DateParseError describes a value the date parser rejected.
type DateParseError struct {
	Value  any
	Reason string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("cannot parse date from %T %v: %s", e.Value, e.Value, e.Reason)
}

func (e *DateParseError) Is(target error) bool {
	return target == ErrInvalidDate
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewContextFailureError wraps err as a ContextFailureError for op.
// Errors that already are context failures are returned unchanged.
func NewContextFailureError(op string, err error) error {
	var cfe *ContextFailureError
	if errors.As(err, &cfe) {
		return err
	}
	return &ContextFailureError{Op: op, Err: err}
}

// NewDateParseError creates a new DateParseError
func NewDateParseError(value any, reason string) error {
	return &DateParseError{Value: value, Reason: reason}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsContextFailure checks if an error is a persistence context failure
func IsContextFailure(err error) bool {
	return errors.Is(err, ErrContextFailure)
}

// IsDateParseError checks if an error is a date parse error
func IsDateParseError(err error) bool {
	return errors.Is(err, ErrInvalidDate)
}
