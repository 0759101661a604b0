package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/contact-mailer/internal/pkg/logger"
)

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// JSON writes data with the given status code. If encoding fails the
// failure is logged; the status line has already been sent.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("json encode failed", "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// BadRequest writes a 400 error.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// InternalError logs err and writes a 500 carrying only the generic
// message.
func InternalError(w http.ResponseWriter, message string, err error) {
	logger.Error(message, "error", err)
	Error(w, http.StatusInternalServerError, message)
}

// InternalErrorWithDetails logs err and writes a 500 whose details field
// carries err's message.
func InternalErrorWithDetails(w http.ResponseWriter, message string, err error) {
	logger.Error(message, "error", err)
	JSON(w, http.StatusInternalServerError, ErrorResponse{Error: message, Details: err.Error()})
}

// Decode reads JSON from the request body into dst.
// Returns false and writes a 400 response if parsing fails.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
