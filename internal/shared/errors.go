package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrValidation marks caller-correctable input problems.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateKey indicates a business key already held by a live row.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock rejects adjustments that would drive stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrArchivalFailure is returned when an archive snapshot could not be written.
	ErrArchivalFailure = errors.New("archival failed")
	// ErrUnauthorized indicates a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the caller lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError carries field level messages and matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for one field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalidf returns an ErrValidation wrapped with a formatted message.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// MapUniqueViolation converts a unique_violation into ErrDuplicateKey.
func MapUniqueViolation(err error, what string) error {
	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, what)
	}
	return err
}
