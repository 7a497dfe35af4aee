package core

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Kind classifies an Error; transports map it to a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindRateLimit
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "internal"
	}
}

// Error is a failure carrying a stable machine-readable Code.
// Internal errors keep the underlying cause in Err for logging; it is never sent to clients.
type Error struct {
	Kind       Kind
	Code       string
	Err        error
	RetryAfter time.Duration // set on KindRateLimit
}

func NewError(kind Kind, code string, err ...error) error {
	e := &Error{Kind: kind, Code: code}
	if len(err) > 0 {
		e.Err = err[0]
	}
	return e
}

// NewRateLimitError returns a KindRateLimit error telling the caller when to retry.
func NewRateLimitError(code string, retryAfter time.Duration) error {
	return &Error{Kind: KindRateLimit, Code: code, RetryAfter: retryAfter}
}

func (e Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
}

func (e Error) Unwrap() error { return e.Err }

// ErrorCode returns the Code of err's cause, or "" when it is not an *Error / *ValidationError.
func ErrorCode(err error) string {
	switch e := errors.Cause(err).(type) {
	case *Error:
		return e.Code
	case *ValidationError:
		return e.Code
	}
	return ""
}

// IsKind reports whether err's cause is an *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	e, ok := errors.Cause(err).(*Error)
	return ok && e.Kind == kind
}

// OrInternal returns err untouched when its cause is already classified, otherwise it wraps it as an
// internal failure reported to clients under `code`.
func OrInternal(err error, code string) error {
	if err == nil {
		return nil
	}
	switch errors.Cause(err).(type) {
	case *Error, *ValidationError:
		return err
	}
	return &Error{Kind: KindInternal, Code: code, Err: err}
}

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a KindValidation failure with optional per-field details.
// Err may hold validator.ValidationErrors, translated by the transport.
type ValidationError struct {
	Code   string
	Err    error
	Fields []FieldError
}

func NewValidationError(code string, err error, flds ...FieldError) error {
	return &ValidationError{Code: code, Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return err.Code
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
