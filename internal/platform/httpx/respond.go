// Package httpx provides the JSON response envelope shared by all handlers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response body returned by every endpoint.
type Envelope struct {
	OK          bool              `json:"ok"`
	Error       string            `json:"error,omitempty"`
	Message     string            `json:"message,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Data        any               `json:"data,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK wraps data in a success envelope.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{OK: true, Data: data})
}

// Fail sends an error envelope with an explicit code and message.
func Fail(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, Envelope{OK: false, Error: code, Message: message})
}

// FailFields sends a validation envelope carrying per-field errors.
func FailFields(w http.ResponseWriter, message string, fields map[string]string) {
	JSON(w, http.StatusBadRequest, Envelope{
		OK:          false,
		Error:       CodeValidation,
		Message:     message,
		FieldErrors: fields,
	})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
