// Package errs provides the unified error type used across all of pgi.
//
// Every layer (config, database, schema, statement, filestore) wraps its
// native errors into *errs.Error before returning them. The worker decides,
// according to its error policy, whether such an error reaches the caller or
// is only written to the diagnostic log.
//
// Usage:
//
//	// In a driver, wrap native errors:
//	return errs.Wrap(errs.ErrKindConnectionFailed, "connect failed", pgErr)
//
//	// In a caller, check the error kind:
//	if errs.IsCardinality(err) {
//	    ...
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing driver-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindNotFound                 // no rows, no object, unknown type oid
	ErrKindConnectionFailed         // cannot open or keep the backend connection
	ErrKindTimeout                  // context deadline / cancellation
	ErrKindQueryFailed              // SQL or storage operation error
	ErrKindInvalidInput             // bad arguments from the caller
	ErrKindPermissionDenied         // access denied / auth failure
	ErrKindConfigLoad               // malformed or missing configuration document
	ErrKindIntrospection            // table metadata could not be discovered
	ErrKindCardinality              // single-row statement returned 0 or >1 rows
)

var kindNames = [...]string{
	ErrKindUnknown:          "unknown",
	ErrKindNotFound:         "not_found",
	ErrKindConnectionFailed: "connection_failed",
	ErrKindTimeout:          "timeout",
	ErrKindQueryFailed:      "query_failed",
	ErrKindInvalidInput:     "invalid_input",
	ErrKindPermissionDenied: "permission_denied",
	ErrKindConfigLoad:       "config_load",
	ErrKindIntrospection:    "introspection",
	ErrKindCardinality:      "cardinality",
}

func (k ErrKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[ErrKindUnknown]
	}
	return kindNames[k]
}

// Error is the single error type returned by all pgi subsystems.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf is New with a format string.
func Newf(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// Is reports whether the first *Error in err's chain has kind.
func Is(err error, kind ErrKind) bool {
	return KindOf(err) == kind
}

// KindOf extracts the ErrKind from any error in the chain.
func KindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}

func IsNotFound(err error) bool         { return Is(err, ErrKindNotFound) }
func IsTimeout(err error) bool          { return Is(err, ErrKindTimeout) }
func IsConnectionFailed(err error) bool { return Is(err, ErrKindConnectionFailed) }
func IsQueryFailed(err error) bool      { return Is(err, ErrKindQueryFailed) }
func IsInvalidInput(err error) bool     { return Is(err, ErrKindInvalidInput) }
func IsPermissionDenied(err error) bool { return Is(err, ErrKindPermissionDenied) }
func IsConfigLoad(err error) bool       { return Is(err, ErrKindConfigLoad) }
func IsIntrospection(err error) bool    { return Is(err, ErrKindIntrospection) }
func IsCardinality(err error) bool      { return Is(err, ErrKindCardinality) }
