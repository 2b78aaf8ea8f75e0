package docsendsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Error codes returned by the service.
const (
	CodeValidation            = "validation_failed"
	CodeUnauthorized          = "unauthorized"
	CodeInsufficientScope     = "insufficient_scope"
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

// ErrMissingScope is returned before a request is made when the session's
// token does not grant what the call needs.
var ErrMissingScope = errors.New("docsendsdk: missing required scope")

// APIError is a failed response from the service.
type APIError struct {
	StatusCode        int
	Code              string            `json:"code"`
	Message           string            `json:"message"`
	RetryAfterSeconds int               `json:"retryAfterSeconds,omitempty"`
	Fields            map[string]string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("docsend: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsCode reports whether err is an APIError carrying code.
func IsCode(err error, code string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == code
}

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var env struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Code != "" {
		env.Error.StatusCode = resp.StatusCode
		if env.Error.RetryAfterSeconds == 0 {
			env.Error.RetryAfterSeconds, _ = strconv.Atoi(resp.Header.Get("Retry-After"))
		}
		return env.Error
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       CodeInternal,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
