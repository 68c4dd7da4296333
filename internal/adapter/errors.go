// Package adapter defines the byte-stream contract shared by every
// ingress/egress protocol implementation, and the error-kind vocabulary
// the session orchestrator uses to pick a protocol-appropriate disconnect.
package adapter

import "github.com/pichi-router/pichi-go/internal/adaerr"

// ErrorKind is the closed enumeration of failure categories an adapter can
// raise. It is an alias of adaerr.ErrorKind so that adapter's own
// dependencies (such as endpoint) can raise these errors without importing
// adapter.
type ErrorKind = adaerr.ErrorKind

const (
	Ok              = adaerr.Ok
	BadProto        = adaerr.BadProto
	CryptoError     = adaerr.CryptoError
	BufferOverflow  = adaerr.BufferOverflow
	BadJSON         = adaerr.BadJSON
	SemanticError   = adaerr.SemanticError
	ResInUse        = adaerr.ResInUse
	ResLocked       = adaerr.ResLocked
	ConnFailure     = adaerr.ConnFailure
	BadAuthMethod   = adaerr.BadAuthMethod
	Unauthenticated = adaerr.Unauthenticated
	Misc            = adaerr.Misc
)

// Error carries an ErrorKind plus an optional wrapped cause, so adapters can
// raise a kind at the point of an invariant violation and the orchestrator
// can later recover it with errors.As to pick a disconnect response.
type Error = adaerr.Error

// New builds an *Error for kind with a message, with no wrapped cause.
func New(kind ErrorKind, message string) *Error {
	return adaerr.New(kind, message)
}

// Wrap builds an *Error for kind with a message, wrapping cause.
func Wrap(kind ErrorKind, message string, cause error) *Error {
	return adaerr.Wrap(kind, message, cause)
}

// KindOf extracts the ErrorKind from err, defaulting to Misc when err is
// not (or does not wrap) an *Error. Network errors (EOF, cancellation) are
// the caller's responsibility to filter before calling KindOf; they are
// swallowed, not converted to a disconnect.
func KindOf(err error) ErrorKind {
	return adaerr.KindOf(err)
}
