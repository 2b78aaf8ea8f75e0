// Package apperr is the error taxonomy shared by the services and the HTTP
// layer. Every error carries a stable machine-readable code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for status mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindNotFound
	KindConflict
	KindRateLimit
	KindNotConfigured
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	case KindNotConfigured:
		return "not_configured"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Well known codes.
const (
	CodeValidation            = "validation_failed"
	CodeUnauthorized          = "unauthorized"
	CodeNotFound              = "not_found"
	CodeStaleDocument         = "stale_document"
	CodeOperationNotPermitted = "operation_not_permitted"
	CodeDocumentLocked        = "document_locked"
	CodeIdentityDisabled      = "identity_disabled"
	CodeAlreadyVerified       = "already_verified"
	CodeSenderNotVerified     = "sender_not_verified"
	CodeNoSenderIdentity      = "no_sender_identity"
	CodeRateLimited           = "rate_limited"
	CodeCooldown              = "cooldown"
	CodeNotConfigured         = "not_configured"
	CodeUpstream              = "upstream_failure"
	CodeInternal              = "internal_error"
)

// Error is the single error type crossing the service boundary.
type Error struct {
	Kind              Kind
	Code              string
	Message           string
	RetryAfterSeconds int
	// Fields maps request field names to the rule they failed.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind onto a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindNotConfigured:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: msg, Fields: fields}
}

func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Code: CodeUnauthorized, Message: msg}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: what + " not found"}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func RateLimit(code string, retryAfter int) *Error {
	if code == "" {
		code = CodeRateLimited
	}
	return &Error{
		Kind:              KindRateLimit,
		Code:              code,
		Message:           "Too many requests. Please try again later.",
		RetryAfterSeconds: max(retryAfter, 1),
	}
}

func NotConfigured(what string, err error) *Error {
	return &Error{Kind: KindNotConfigured, Code: CodeNotConfigured, Message: what + " is not configured", Err: err}
}

func Upstream(what string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: CodeUpstream, Message: what + " failed", Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error", Err: err}
}

// As extracts an *Error from err. Anything else is reported as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}
