// Package httputil writes the JSON response envelope shared by every route.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "formgate/pkg/domain-errors"
)

// internalMessage is the only text a client ever sees for unexpected failures.
const internalMessage = "Internal server error"

// ErrorResponse is the failure shape of the response envelope.
type ErrorResponse struct {
	Success    bool     `json:"success"`
	Error      string   `json:"error"`
	Details    []string `json:"details,omitempty"`
	RetryAfter int      `json:"retryAfter,omitempty"`
}

// WriteJSON serializes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError maps a classified error to its status and envelope. Anything that
// is not a domain error, and every CodeInternal error, is reported without
// detail.
func WriteError(w http.ResponseWriter, err error) {
	de, ok := dErrors.As(err)
	if !ok || de.Code == dErrors.CodeInternal {
		WriteJSON(w, http.StatusInternalServerError, &ErrorResponse{Error: internalMessage})
		return
	}
	WriteJSON(w, dErrors.HTTPStatus(de.Code), &ErrorResponse{
		Error:   de.Message,
		Details: de.Details,
	})
}
