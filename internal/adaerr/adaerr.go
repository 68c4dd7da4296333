// Package adaerr defines the error-kind vocabulary the session orchestrator
// uses to pick a protocol-appropriate disconnect. It is split out from
// package adapter so that packages adapter depends on (such as endpoint)
// can report these errors without an import cycle.
package adaerr

import "fmt"

// ErrorKind is the closed enumeration of failure categories an adapter can
// raise.
type ErrorKind int

const (
	Ok ErrorKind = iota
	BadProto
	CryptoError
	BufferOverflow
	BadJSON
	SemanticError
	ResInUse
	ResLocked
	ConnFailure
	BadAuthMethod
	Unauthenticated
	Misc
)

func (k ErrorKind) String() string {
	switch k {
	case Ok:
		return "ok"
	case BadProto:
		return "bad_proto"
	case CryptoError:
		return "crypto_error"
	case BufferOverflow:
		return "buffer_overflow"
	case BadJSON:
		return "bad_json"
	case SemanticError:
		return "semantic_error"
	case ResInUse:
		return "res_in_use"
	case ResLocked:
		return "res_locked"
	case ConnFailure:
		return "conn_failure"
	case BadAuthMethod:
		return "bad_auth_method"
	case Unauthenticated:
		return "unauthenticated"
	case Misc:
		return "misc"
	default:
		return "unknown"
	}
}

// Error carries an ErrorKind plus an optional wrapped cause, so adapters can
// raise a kind at the point of an invariant violation and the orchestrator
// can later recover it with errors.As to pick a disconnect response.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error for kind with a message, with no wrapped cause.
func New(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error for kind with a message, wrapping cause.
func Wrap(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the ErrorKind from err, defaulting to Misc when err is
// not (or does not wrap) an *Error. Network errors (EOF, cancellation) are
// the caller's responsibility to filter before calling KindOf; they are
// swallowed, not converted to a disconnect.
func KindOf(err error) ErrorKind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return Misc
}

// as is a tiny indirection over errors.As kept local to avoid importing
// errors in every call site that only needs KindOf.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
