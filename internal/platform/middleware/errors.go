package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/MediFlow-EMR/mediflow-dev/internal/platform/apperr"
)

// Envelope is the response body shape shared by every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

func OK(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

// StatusOf maps an error to the HTTP status it is reported with.
func StatusOf(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrSummarization):
		return http.StatusBadGateway
	case errors.As(err, &he):
		return he.Code
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders every error returned by a handler into the envelope.
// Unclassified errors are logged in full and reported with a generic message.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := StatusOf(err)
		msg := http.StatusText(status)

		var he *echo.HTTPError
		if ae, ok := apperr.As(err); ok {
			msg = ae.PublicMessage()
		} else if errors.As(err, &he) && status < 500 {
			if s, ok := he.Message.(string); ok {
				msg = s
			}
		}

		if status >= 500 {
			logger.Error().Err(err).
				Str("request_id", RequestIDFromContext(c)).
				Int("status", status).
				Msg("request failed")
			if status == http.StatusInternalServerError {
				msg = "internal server error"
			}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, Envelope{Success: false, Message: msg})
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("failed to write error response")
		}
	}
}
