package apperr

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable failure category carried by Error.
type Kind string

const (
	KindIndicatorUnavailable Kind = "INDICATOR_UNAVAILABLE"
	KindRateFetchFailed      Kind = "RATE_FETCH_FAILED"
	KindUnsupportedCurrency  Kind = "UNSUPPORTED_CURRENCY"
	KindRegionNotFound       Kind = "REGION_NOT_FOUND"
	KindRecordNotFound       Kind = "RECORD_NOT_FOUND"
	KindValidation           Kind = "VALIDATION"
	KindUnauthorized         Kind = "UNAUTHORIZED"
	KindForbidden            Kind = "FORBIDDEN"
)

// Targets for errors.Is; only the Kind is compared.
var (
	IndicatorUnavailable = &Error{Kind: KindIndicatorUnavailable}
	RateFetchFailed      = &Error{Kind: KindRateFetchFailed}
	UnsupportedCurrency  = &Error{Kind: KindUnsupportedCurrency}
	RegionNotFound       = &Error{Kind: KindRegionNotFound}
	RecordNotFound       = &Error{Kind: KindRecordNotFound}
	Validation           = &Error{Kind: KindValidation}
	Unauthorized         = &Error{Kind: KindUnauthorized}
	Forbidden            = &Error{Kind: KindForbidden}
)

// Error is a tagged domain failure.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the user-facing message of the first *Error in err's chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return ""
}
