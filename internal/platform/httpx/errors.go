package httpx

import (
	"errors"
	"net/http"
)

// Machine-readable error codes carried in the envelope.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

// Sentinel errors for the domain layer. Services wrap these so handlers can
// map any failure to a status without inspecting implementation detail.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
)

// Error maps domain errors to the envelope. Unknown errors reduce to a
// generic internal message so nothing implementation-specific leaks out.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		Fail(w, http.StatusUnauthorized, CodeUnauthorized, messageOr(err, "authentication required"))
	case errors.Is(err, ErrForbidden):
		Fail(w, http.StatusForbidden, CodeForbidden, messageOr(err, "forbidden"))
	case errors.Is(err, ErrNotFound):
		Fail(w, http.StatusNotFound, CodeNotFound, messageOr(err, "resource not found"))
	case errors.Is(err, ErrConflict):
		Fail(w, http.StatusConflict, CodeConflict, messageOr(err, "conflict"))
	case errors.Is(err, ErrValidation):
		Fail(w, http.StatusBadRequest, CodeValidation, messageOr(err, "validation failed"))
	case errors.Is(err, ErrRateLimited):
		Fail(w, http.StatusTooManyRequests, CodeRateLimited, messageOr(err, "too many requests"))
	default:
		Fail(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

func messageOr(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
