package api

import (
	"errors"
	"net/http"

	"github.com/ignite/contact-mailer/internal/engagement"
	"github.com/ignite/contact-mailer/internal/pkg/httputil"
	"github.com/ignite/contact-mailer/internal/pkg/logger"
)

// writeEngagementError maps engagement errors to responses. Store details
// are logged but never returned.
func writeEngagementError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, engagement.ErrValidation):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, engagement.ErrBusy):
		logger.Warn(message, "error", err)
		httputil.JSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{Error: message, Details: engagement.ErrBusy.Error()})
	case errors.Is(err, engagement.ErrUnavailable):
		logger.Error(message, "error", err)
		httputil.JSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: message, Details: engagement.ErrUnavailable.Error()})
	default:
		httputil.InternalError(w, message, err)
	}
}
