// Package riskerr defines the error kinds every analysis returns.
//
// Callers branch on the kind rather than on message text:
//
//	if riskerr.IsKind(err, riskerr.KindNotFound) { ... }
package riskerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the machine-readable class of an error.
type Kind string

const (
	// KindNotFound means the resource id is unknown to the graph.
	KindNotFound Kind = "NotFound"
	// KindInvalidParameter means the caller passed a value the engine rejects.
	KindInvalidParameter Kind = "InvalidParameter"
	// KindInsufficientData means the requested result cannot be computed from the input.
	KindInsufficientData Kind = "InsufficientData"
	// KindTimeout means the caller's deadline expired. A partial result may accompany it.
	KindTimeout Kind = "Timeout"
	// KindUpstreamUnavailable means the graph store failed.
	KindUpstreamUnavailable Kind = "UpstreamUnavailable"
	// KindInternal is anything else.
	KindInternal Kind = "Internal"
)

// Error carries a Kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail returns e with key set in Details.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around err.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// NotFound reports an unknown resource id.
func NotFound(resourceID string) *Error {
	return New(KindNotFound, "resource %q not found", resourceID).WithDetail("resource_id", resourceID)
}

// InvalidParameter reports a rejected parameter value.
func InvalidParameter(param string, format string, args ...interface{}) *Error {
	return New(KindInvalidParameter, "invalid %s: %s", param, fmt.Sprintf(format, args...)).WithDetail("parameter", param)
}

// InsufficientData reports input too small to produce the requested result.
func InsufficientData(format string, args ...interface{}) *Error {
	return New(KindInsufficientData, format, args...)
}

// Upstream wraps a graph store failure.
func Upstream(err error, format string, args ...interface{}) *Error {
	return Wrap(KindUpstreamUnavailable, err, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain. Context
// deadline and cancellation errors map to KindTimeout; other errors are
// KindInternal. A nil error has an empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindInternal
}

// IsKind reports whether err has the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromContext converts an ended context into a Timeout error naming op.
// It returns nil while ctx is still live.
func FromContext(ctx context.Context, op string) error {
	if ctx.Err() == nil {
		return nil
	}
	return Wrap(KindTimeout, ctx.Err(), "%s did not complete before the deadline", op)
}

// Classify wraps a store error: errors that already carry a kind pass through,
// context errors become Timeout, and everything else becomes UpstreamUnavailable.
func Classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Wrap(KindTimeout, err, "%s did not complete before the deadline", op)
	}
	return Upstream(err, "%s failed", op)
}
