// Package httpx holds the small JSON helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// NewRequestID returns a fresh correlation ID for responses and logs.
func NewRequestID() string { return "req_" + uuid.NewString() }

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodes the request body into dst, rejecting unknown fields.
func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// WriteError writes a structured error response with a request ID.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, map[string]any{
		"request_id": NewRequestID(),
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
