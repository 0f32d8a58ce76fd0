package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "not_found", "message": "챌린지를 찾을 수 없습니다."}
//
// The frontend shows "message" as-is, so messages are user-facing Korean
// text. "error" is the machine-readable type.

import (
	"errors"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/sakif/challenge-tracker/internal/apperror"
)

// internalErrorMessage is all a client ever sees of an unclassified error.
const internalErrorMessage = "서버 오류 발생"

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written. Once Encode
// writes the first byte, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// decodeJSON reads a JSON request body into dst. A malformed body is a
// validation error, not a server error.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperror.ValidationFailed("", "요청 본문이 필요합니다.")
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("", "잘못된 요청 형식입니다.")
	}
	return nil
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
// The service layer returns apperror.ErrValidation, apperror.ErrNotFound,
// etc. wrapped in context; errors.Is walks the chain to find the sentinel:
//
//	service returns: fmt.Errorf("service: getting challenge 3: %w", apperror.NotFound(...))
//	which wraps:     AppError{Err: ErrNotFound, Message: "..."}
//	errors.Is walks: outer error → AppError → ErrNotFound ✓ match!
//
// Anything without an AppError in its chain is a bug or an infrastructure
// failure. It is logged with the full chain and the client gets a generic 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest // 400
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized // 401
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden // 403
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict // 409
			errorType = "conflict"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("unhandled error", slog.String("error", err.Error()))

	// NEVER expose internal error details to the client: the raw message
	// may contain SQL or file paths.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: internalErrorMessage,
	})
}
