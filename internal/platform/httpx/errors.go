// Package httpx provides HTTP response utilities.
package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopmanager/shopmanager/internal/shared"
)

// RespondError maps domain errors to HTTP responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		Error(w, http.StatusBadRequest, "Validation failed", err.Error())
	case errors.Is(err, shared.ErrInsufficientStock):
		Error(w, http.StatusBadRequest, "Insufficient stock", err.Error())
	case errors.Is(err, shared.ErrDuplicateKey):
		Error(w, http.StatusConflict, "Duplicate key", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Error(w, http.StatusUnauthorized, "Invalid credentials", "")
	case errors.Is(err, shared.ErrUnauthorized):
		Error(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Error(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrArchivalFailure):
		Error(w, http.StatusInternalServerError, "Archival failed, entity was not deleted", err.Error())
	default:
		Error(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

// Fail logs unexpected errors and writes the mapped error response.
func Fail(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if unexpected(err) {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	RespondError(w, err)
}

func unexpected(err error) bool {
	for _, known := range []error{
		shared.ErrValidation, shared.ErrNotFound, shared.ErrDuplicateKey, shared.ErrInsufficientStock,
		shared.ErrUnauthorized, shared.ErrForbidden, shared.ErrInvalidCredentials, context.Canceled,
	} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}
