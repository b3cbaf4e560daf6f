package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopmanager/shopmanager/internal/shared"
)

// ErrorBody is the structured error response.
type ErrorBody struct {
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// MessageBody wraps a human readable message with an optional payload.
type MessageBody struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends an ErrorBody.
func Error(w http.ResponseWriter, status int, message, detail string) {
	JSON(w, status, ErrorBody{Message: message, Error: detail})
}

// Message sends a MessageBody.
func Message(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, MessageBody{Message: message, Data: data})
}

// NotFoundHandler answers unmatched routes.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusNotFound, ErrorBody{
		Message:   "Route not found",
		Error:     r.Method + " " + r.URL.Path,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// MethodNotAllowedHandler answers known routes hit with the wrong verb.
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusMethodNotAllowed, ErrorBody{
		Message:   "Method not allowed",
		Error:     r.Method + " " + r.URL.Path,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil {
		return shared.Invalidf("request body required")
	}
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr):
			return shared.Invalidf("malformed JSON at offset %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return shared.Invalidf("field %s has the wrong type", typeErr.Field)
		default:
			return shared.Invalidf("invalid request body: %v", err)
		}
	}
	return nil
}
