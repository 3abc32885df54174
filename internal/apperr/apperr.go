package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how the caller is expected to recover from it.
type Kind string

const (
	KindUnauthenticated   Kind = "unauthenticated"
	KindPendingApproval   Kind = "pending_approval"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindUpstreamFailure   Kind = "upstream_failure"
	KindValidationFailure Kind = "validation_failure"
)

// Sentinel values usable with errors.Is. Any *Error of the same kind matches.
var (
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
	ErrPendingApproval   = &Error{Kind: KindPendingApproval}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrUpstreamFailure   = &Error{Kind: KindUpstreamFailure}
	ErrValidationFailure = &Error{Kind: KindValidationFailure}
)

type Error struct {
	Kind    Kind
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can compare against the package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindUpstreamFailure for unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstreamFailure
}

// CodeOf returns the machine readable code carried by err, falling back to its kind.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Code != "" {
			return e.Code
		}
		return string(e.Kind)
	}
	return string(KindUpstreamFailure)
}

// MessageOf returns the user facing message carried by err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	switch KindOf(err) {
	case KindUnauthenticated:
		return "not authenticated"
	case KindPendingApproval:
		return "account is pending approval"
	case KindForbidden:
		return "not allowed"
	case KindNotFound:
		return "not found"
	case KindValidationFailure:
		return "invalid input"
	default:
		return "temporarily unavailable, try again"
	}
}

func Unauthenticated(op, code, msg string) error {
	return &Error{Kind: KindUnauthenticated, Op: op, Code: code, Message: msg}
}

func PendingApproval(op string) error {
	return &Error{Kind: KindPendingApproval, Op: op, Code: string(KindPendingApproval), Message: "account is pending approval"}
}

func Forbidden(op, msg string) error {
	return &Error{Kind: KindForbidden, Op: op, Message: msg}
}

func NotFound(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Message: msg}
}

func Validation(op, code, msg string) error {
	return &Error{Kind: KindValidationFailure, Op: op, Code: code, Message: msg}
}

// Upstream wraps a failed call to the identity, directory or blob store.
func Upstream(op string, err error) error {
	return &Error{Kind: KindUpstreamFailure, Op: op, Err: err}
}
