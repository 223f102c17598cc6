package domain

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// ErrorKind classifies a BridgeError into the taxonomy of SPEC_FULL.md §7.
type ErrorKind string

const (
	KindInvalidRequest ErrorKind = "InvalidRequest"
	KindNotFound       ErrorKind = "NotFound"
	KindForbidden      ErrorKind = "Forbidden"
	KindTargetFailure  ErrorKind = "TargetFailure"
	KindInternal       ErrorKind = "InternalError"
)

// HTTPStatus maps an ErrorKind to its HTTP-like status code, per the error
// code map in spec.md §6.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindTargetFailure, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// BridgeError is the error type every failure inside the request-processing
// pipeline is normalized to before it reaches the backend manager boundary.
type BridgeError struct {
	Kind       ErrorKind
	Message    string
	Cause      error
	StackTrace string // captured at construction; only surfaced when the caller asked for IncludeStackTrace
}

func (e *BridgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BridgeError) Unwrap() error { return e.Cause }

// NewError builds a BridgeError of the given kind.
func NewError(kind ErrorKind, message string, cause error) *BridgeError {
	return &BridgeError{Kind: kind, Message: message, Cause: cause, StackTrace: string(debug.Stack())}
}

// Invalidf builds an InvalidRequest error (HTTP-like 400).
func Invalidf(format string, args ...any) *BridgeError {
	return &BridgeError{Kind: KindInvalidRequest, Message: fmt.Sprintf(format, args...), StackTrace: string(debug.Stack())}
}

// NotFoundf builds a NotFound error (HTTP-like 404).
func NotFoundf(format string, args ...any) *BridgeError {
	return &BridgeError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...), StackTrace: string(debug.Stack())}
}

// Forbiddenf builds a Forbidden error (HTTP-like 403). Per spec.md §8
// invariant 5, Forbidden responses never carry a stack trace regardless of
// IncludeStackTrace, so unlike the other constructors this one leaves
// StackTrace unset.
func Forbiddenf(format string, args ...any) *BridgeError {
	return &BridgeError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// TargetFailuref builds a TargetFailure error (HTTP-like 500) — the invoked
// operation or attribute accessor itself threw.
func TargetFailuref(cause error, format string, args ...any) *BridgeError {
	return &BridgeError{Kind: KindTargetFailure, Message: fmt.Sprintf(format, args...), Cause: cause, StackTrace: string(debug.Stack())}
}

// Internalf builds an InternalError (HTTP-like 500) for unexpected failures.
func Internalf(cause error, format string, args ...any) *BridgeError {
	return &BridgeError{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Cause: cause, StackTrace: string(debug.Stack())}
}

// AsBridgeError normalizes any error into a *BridgeError, defaulting to
// KindInternal when err does not already carry a kind.
func AsBridgeError(err error) *BridgeError {
	if err == nil {
		return nil
	}
	var be *BridgeError
	if errors.As(err, &be) {
		return be
	}
	return &BridgeError{Kind: KindInternal, Message: err.Error(), Cause: err, StackTrace: string(debug.Stack())}
}

// IsNotFound reports whether err is, or wraps, a NotFound BridgeError —
// used by the bean-server handler to decide whether to keep iterating
// registries (spec.md §4.4 step 4).
func IsNotFound(err error) bool {
	be := AsBridgeError(err)
	return be != nil && be.Kind == KindNotFound
}
