package fault

import (
	"errors"
	"fmt"
)

// Kind classifies control-plane failures so callers and HTTP handlers can
// react without string matching.
type Kind int

const (
	// KindUnknown is the zero value for errors that carry no kind.
	KindUnknown Kind = iota
	// KindNotFound means a referenced entity does not exist.
	KindNotFound
	// KindConflict means the operation violates a relationship constraint,
	// such as deleting a chain that still has steps.
	KindConflict
	// KindResourceExhausted means a resource pool (VLAN tags) is empty.
	KindResourceExhausted
	// KindInstanceError means the compute platform reported an error state.
	KindInstanceError
	// KindLaunchTimeout means an instance readiness poll exceeded its bound.
	KindLaunchTimeout
	// KindCancelled means the caller's context was cancelled mid-launch.
	KindCancelled
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindResourceExhausted:
		return "resource_exhausted"
	case KindInstanceError:
		return "instance_error"
	case KindLaunchTimeout:
		return "launch_timeout"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a kinded error that still participates in errors.Is/As chains.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a kinded error
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a kinded error wrapping an underlying cause
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// NotFound creates a KindNotFound error
func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

// Conflict creates a KindConflict error
func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

// ResourceExhausted creates a KindResourceExhausted error
func ResourceExhausted(format string, args ...any) *Error {
	return New(KindResourceExhausted, format, args...)
}

// InstanceError creates a KindInstanceError error
func InstanceError(format string, args ...any) *Error {
	return New(KindInstanceError, format, args...)
}

// LaunchTimeout creates a KindLaunchTimeout error
func LaunchTimeout(format string, args ...any) *Error {
	return New(KindLaunchTimeout, format, args...)
}

// Cancelled creates a KindCancelled error
func Cancelled(format string, args ...any) *Error {
	return New(KindCancelled, format, args...)
}

// KindOf extracts the kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsKind reports whether any error in the chain carries the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
