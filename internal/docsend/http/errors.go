package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/docsend/internal/docsend/apperr"
	"github.com/aussiebroadwan/docsend/pkg/httpx"
	"github.com/aussiebroadwan/docsend/pkg/slogx"
)

// writeErr maps err onto the response envelope. Wrapped causes are logged,
// never written.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.As(err)
	status := ae.HTTPStatus()

	// NotConfigured is reported once by the lazy resource that produced it.
	if status >= http.StatusInternalServerError && ae.Kind != apperr.KindNotConfigured {
		slogx.FromContext(r.Context()).Error("request failed",
			slog.String("code", ae.Code),
			slog.String("kind", ae.Kind.String()),
			slog.Any("error", ae.Err),
		)
	}
	if ae.Kind == apperr.KindAuth {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}

	if len(ae.Fields) > 0 {
		if ae.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(ae.RetryAfterSeconds))
		}
		httpx.WriteJSON(w, status, validationEnvelope{
			OK: false,
			Error: validationBody{
				Code:    ae.Code,
				Message: ae.Message,
				Fields:  ae.Fields,
			},
		})
		return
	}
	httpx.WriteError(w, status, ae.Code, ae.Message, ae.RetryAfterSeconds)
}

// badRequest reports a body or parameter that could not be read at all.
func badRequest(w http.ResponseWriter, msg string) {
	httpx.WriteError(w, http.StatusBadRequest, apperr.CodeValidation, msg, 0)
}

type validationBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type validationEnvelope struct {
	OK    bool           `json:"ok"`
	Error validationBody `json:"error"`
}
