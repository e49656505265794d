// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Storage errors.
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEntry     = errors.New("duplicate entry")
	ErrGlobalRuleReadOnly = errors.New("global rules cannot be modified by a household")

	// Validation errors.
	ErrMissingHousehold = errors.New("household identifier is required")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidRule      = errors.New("invalid rule")

	// Configuration errors.
	ErrKitTooSmall   = errors.New("rule kit below minimum pattern count")
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Adapter errors.
	ErrAdapterUnavailable = errors.New("classifier unavailable")
	ErrMalformedResponse  = errors.New("malformed classifier response")
)

// ValidationError reports a rejected input before any work is attempted.
type ValidationError struct {
	Err    error
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string, err error) error {
	return &ValidationError{Field: field, Reason: reason, Err: err}
}

// MissingHousehold is returned by every operation called without a household.
func MissingHousehold() error {
	return NewValidationError("household_id", "must not be empty", ErrMissingHousehold)
}

// ConfigurationError is fatal and raised at seed or startup time, never per request.
type ConfigurationError struct {
	Err   error
	Kit   string
	Count int
	Min   int
}

func (e *ConfigurationError) Error() string {
	if e.Kit != "" {
		return fmt.Sprintf("configuration error: kit %q has %d patterns, minimum is %d", e.Kit, e.Count, e.Min)
	}
	return fmt.Sprintf("configuration error: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// AdapterError wraps a failure of the external classifier.
type AdapterError struct {
	Err      error
	Provider string
	Items    int
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("classifier %s failed for %d items: %v", e.Provider, e.Items, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// PersistenceError records a failed write for a single transaction.
type PersistenceError struct {
	Err           error
	TransactionID string
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist transaction %s: %v", e.TransactionID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
