package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//   {"error": "handle_taken", "message": "handle \"joao\" is already taken", "field": "handle"}
//
// "error" is the apperror.Kind, so the frontend branches on one string and
// never parses messages. "field" names the offending input when there is one,
// and "key" carries the storage key of an avatar that was uploaded but not linked.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/ca-portal/internal/apperror"
)

// maxJSONBody caps every JSON request body. Profile edits and contact messages
// are small; anything bigger is a mistake or abuse.
const maxJSONBody = 64 << 10

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // apperror.Kind, e.g. "not_found"
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending input field
	Key     string `json:"key,omitempty"`   // Storage key (avatar_not_linked)
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body. Once Encode writes, the
// headers are on the wire and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest // 400
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized // 401
	case apperror.KindForbidden:
		return http.StatusForbidden // 403
	case apperror.KindNotFound:
		return http.StatusNotFound // 404
	case apperror.KindHandleTaken, apperror.KindConflict:
		return http.StatusConflict // 409
	case apperror.KindAvatarNotLinked:
		return http.StatusBadGateway // 502: half done, the store holds the blob
	case apperror.KindUnavailable:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to its HTTP status and sends it.
//
// WHY HERE AND NOT IN THE SERVICE?
// The service layer should not know about HTTP status codes. It returns an
// *apperror.AppError; apperror.KindOf picks the single outcome; this function
// turns that outcome into a status.
//
// Unknown errors become a generic 500. The raw message might contain SQL or
// file paths, so it is never sent to the client.
func writeError(w http.ResponseWriter, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   string(apperror.KindInternal),
			Message: "an internal error occurred",
		})
		return
	}

	status := statusFor(kind)
	resp := ErrorResponse{Error: string(kind), Message: http.StatusText(status)}

	// A bare sentinel has no safe message of its own; the status text stands in.
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Field = appErr.Field
		resp.Key = appErr.Key
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a capped JSON body into dst. A malformed body is an
// apperror.ErrValidation so callers can hand it straight to writeError.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperror.ValidationFailed("body", "request body is too large")
		}
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}
