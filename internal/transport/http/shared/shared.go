// Package shared centralizes JSON response and error translation helpers
// used by HTTP handlers, so every endpoint emits the same envelopes.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "volunteerd/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a JSON error response. Unknown
// errors map to 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	code := pkgerrors.CodeInternal
	message := "internal error"

	var de *pkgerrors.Error
	if errors.As(err, &de) {
		code = de.Code
		message = de.Message
	}

	WriteJSON(w, pkgerrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": message,
	})
}
