// Package apperr defines the error taxonomy shared by the managers and the
// HTTP boundary. Domain packages declare their failures as *Error values; the
// boundary maps them to status codes by Kind.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindPayloadTooLarge
	KindUnprocessable
	KindNotFound
	KindConflict
	KindPermission
	KindUnauthorized
	KindRateLimited
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindUnprocessable:
		return "unprocessable"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindPermission:
		return "permission"
	case KindUnauthorized:
		return "unauthorized"
	case KindRateLimited:
		return "rate_limited"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unexpected"
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Key names the offending request field for conflicts (e.g. "email").
	Key string
	// RetryAfter is set for rate-limited and retryable failures.
	RetryAfter time.Duration
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Code so that errors built with WithMessage still compare
// equal to the sentinel they came from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

func (e *Error) WithMessagef(format string, args ...any) *Error {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

func (e *Error) WithKey(key string) *Error {
	cp := *e
	cp.Key = key
	return &cp
}

func (e *Error) WithRetryAfter(d time.Duration) *Error {
	cp := *e
	cp.RetryAfter = d
	return &cp
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindUnexpected
}
