package oidcrp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTokenMissing is returned when no bearer token is present on the
	// request.
	ErrTokenMissing = errors.New("token missing")

	// ErrTokenInvalid is returned when a bearer token fails verification.
	ErrTokenInvalid = errors.New("token invalid")
)

// ErrorHandler is called when the middleware encounters an error. The err
// can be checked against ErrTokenMissing and ErrTokenInvalid; unwrapping
// an invalid-token error exposes the verification failure underneath.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler answers a missing token with 400 and a failed
// verification with 401. The body is a JSON object of the form
// {"error": <reason>} so callers can surface the failure reason.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTokenMissing):
		writeErrorBody(w, http.StatusBadRequest, "token missing")
	case errors.Is(err, ErrTokenInvalid):
		reason := "token invalid"
		var inv *invalidError
		if errors.As(err, &inv) {
			reason = inv.details.Error()
		}
		writeErrorBody(w, http.StatusUnauthorized, reason)
	default:
		writeErrorBody(w, http.StatusInternalServerError, "could not check token")
	}
}

func writeErrorBody(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": reason})
}

// invalidError wraps a verification failure with the concrete error
// ErrTokenInvalid. Not exported: Is and Unwrap give callers all they
// need.
type invalidError struct {
	details error
}

// Is allows the error to support equality to ErrTokenInvalid.
func (e *invalidError) Is(target error) bool {
	return target == ErrTokenInvalid
}

func (e *invalidError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTokenInvalid, e.details)
}

// Unwrap allows the error to support equality to the underlying
// verification error as well.
func (e *invalidError) Unwrap() error {
	return e.details
}
