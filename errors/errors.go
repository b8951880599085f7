// Package errors provides error handling for quarry.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint      = crdb.WithHint
	WithHintf     = crdb.WithHintf
	WithDetail    = crdb.WithDetail
	WithDetailf   = crdb.WithDetailf
	GetAllDetails = crdb.GetAllDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// GetStack is an alias for GetReportableStackTrace for convenience.
var GetStack = crdb.GetReportableStackTrace

// Sentinel errors for the dataset execution engine.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates a dataset, source, or execution does not exist
	ErrNotFound = New("not found")

	// ErrConfigInvalid indicates a source exists but carries no usable credentials
	ErrConfigInvalid = New("source configuration invalid")

	// ErrTemplateMissing indicates a template reference that resolves nowhere
	ErrTemplateMissing = New("template not found")

	// ErrExternalAPI indicates a non-2xx response or an API-level error list
	// from the external GraphQL endpoint
	ErrExternalAPI = New("external API error")

	// ErrCheckpointPersist indicates a best-effort checkpoint write failed.
	// Callers log it and continue; it never aborts a fan-out in progress.
	ErrCheckpointPersist = New("checkpoint persist failed")

	// ErrInvalidRequest indicates the request was malformed or invalid
	ErrInvalidRequest = New("invalid request")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
// Also provides backward compatibility with string-based "not found" errors
// raised by sql-layer helpers.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrNotFound) {
		return true
	}
	errMsg := err.Error()
	return len(errMsg) >= 9 && errMsg[len(errMsg)-9:] == "not found"
}

// IsResolutionError reports whether err belongs to the fatal resolution
// class (dataset/source/template lookup or validation). Resolution errors
// are never retried.
func IsResolutionError(err error) bool {
	return err != nil && IsAny(err, ErrNotFound, ErrConfigInvalid, ErrTemplateMissing)
}

// IsExternalAPIError checks if an error is or wraps ErrExternalAPI
func IsExternalAPIError(err error) bool {
	return err != nil && Is(err, ErrExternalAPI)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}
