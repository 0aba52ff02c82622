// Package sonarerr defines the stable error kinds every Sonar operation
// returns. Wire collaborators (RPC, OpenSubsonic, CLI) map a Kind to their
// own status code; none of them ever see a blob key, hash, or file path in
// a message.
package sonarerr

import "fmt"

// Kind is one of the error kinds from the error handling design.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindInvalidArgument   Kind = "invalid_argument"
	KindInvalidID         Kind = "invalid_id"
	KindConflict          Kind = "conflict"
	KindUnauthenticated   Kind = "unauthenticated"
	KindPermissionDenied  Kind = "permission_denied"
	KindUnsupportedMime   Kind = "unsupported_mime"
	KindIoError           Kind = "io_error"
	KindHashMismatch      Kind = "hash_mismatch"
	KindProviderError     Kind = "provider_error"
	KindInternal          Kind = "internal"
)

// Error is the concrete error type carried across package boundaries.
type Error struct {
	Kind   Kind
	Entity string // for NotFound/ProviderError
	ID     string // for NotFound
	Field  string // for InvalidArgument
	Reason string
	Err    error // wrapped cause, never rendered to clients
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("not found: %s %s", e.Entity, e.ID)
	case KindInvalidArgument:
		return fmt.Sprintf("invalid argument: %s: %s", e.Field, e.Reason)
	case KindInvalidID:
		return fmt.Sprintf("invalid id: expected namespace %s", e.Reason)
	case KindConflict:
		return fmt.Sprintf("conflict: %s", e.Reason)
	case KindProviderError:
		return fmt.Sprintf("provider error: %s: %s", e.Entity, e.Reason)
	default:
		if e.Reason != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
		}
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id}
}

func InvalidArgument(field, reason string) error {
	return &Error{Kind: KindInvalidArgument, Field: field, Reason: reason}
}

func InvalidID(expectedNamespace string) error {
	return &Error{Kind: KindInvalidID, Reason: expectedNamespace}
}

func Conflict(reason string) error {
	return &Error{Kind: KindConflict, Reason: reason}
}

func Unauthenticated() error {
	return &Error{Kind: KindUnauthenticated, Reason: "missing or expired token"}
}

func PermissionDenied() error {
	return &Error{Kind: KindPermissionDenied, Reason: "admin required"}
}

func UnsupportedMime(mime string) error {
	return &Error{Kind: KindUnsupportedMime, Reason: mime}
}

func IoError(err error) error {
	return &Error{Kind: KindIoError, Err: err, Reason: "io failure"}
}

func HashMismatch() error {
	return &Error{Kind: KindHashMismatch, Reason: "content hash mismatch"}
}

func ProviderError(name, reason string) error {
	return &Error{Kind: KindProviderError, Entity: name, Reason: reason}
}

func Internal(err error) error {
	return &Error{Kind: KindInternal, Err: err, Reason: "internal error"}
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if se, ok := err.(*Error); ok {
			e = se
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
