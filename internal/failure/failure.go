// Package failure classifies engine errors into the kinds that decide how a
// failure is routed: keep polling, refresh credentials, or end the session.
package failure

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Kind is a machine-readable error class.
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindTransient    Kind = "transient"
	KindAuth         Kind = "auth"
	KindValidation   Kind = "validation"
	KindBusinessRule Kind = "business_rule"
	KindDomain       Kind = "domain"
)

// Error is a classified failure with an optional HTTP status and cause.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by kind, so errors.Is(err, failure.Auth) works.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind && t.Status == 0 && t.Message == "" && t.Cause == nil
	}
	return false
}

// Kind markers for errors.Is.
var (
	Transient    = &Error{Kind: KindTransient}
	Auth         = &Error{Kind: KindAuth}
	Validation   = &Error{Kind: KindValidation}
	BusinessRule = &Error{Kind: KindBusinessRule}
	Domain       = &Error{Kind: KindDomain}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// FromStatus builds an error for a non-2xx response. Reads pass read=true:
// a rejected read means the match is gone, a rejected command is a domain error.
func FromStatus(status int, message string, read bool) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	e := &Error{Status: status, Message: message}
	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindAuth
	case status >= 500, status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		e.Kind = KindTransient
	case read:
		e.Kind = KindValidation
	default:
		e.Kind = KindDomain
	}
	return e
}

// KindOf returns the kind of err. Unclassified network and deadline errors are
// transient; anything else is unknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindUnknown
}

// Message is the user-facing text for err.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
