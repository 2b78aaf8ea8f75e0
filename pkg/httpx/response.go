package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// ErrorBody is the error half of the response envelope.
type ErrorBody struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

// Envelope is the shape of every JSON response: {ok:true,...} on success
// and {ok:false,error:{...}} on failure.
type Envelope struct {
	OK    bool       `json:"ok"`
	Error *ErrorBody `json:"error,omitempty"`
	Data  any        `json:"data,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteOK writes {ok:true,data:v}.
func WriteOK(w http.ResponseWriter, code int, v any) {
	WriteJSON(w, code, Envelope{OK: true, Data: v})
}

// WriteError writes the failure envelope. A positive retryAfter also sets
// the Retry-After header.
func WriteError(w http.ResponseWriter, status int, code, message string, retryAfter int) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	WriteJSON(w, status, Envelope{
		OK: false,
		Error: &ErrorBody{
			Code:              code,
			Message:           message,
			RetryAfterSeconds: retryAfter,
		},
	})
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// DecodeJSON decodes a bounded request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any, limit int64) error {
	if limit <= 0 {
		limit = 1 << 20
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, limit))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
