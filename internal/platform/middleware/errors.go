package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/futuremed/wardcare/internal/platform/apperr"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler renders service and echo errors as ErrorResponse. The
// internal cause of a 5xx is logged and never returned to the client.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			he = apperr.HTTPError(err).(*echo.HTTPError)
		}

		body := ErrorResponse{RequestID: requestID(c)}
		if msg, ok := he.Message.(string); ok {
			body.Error = msg
		} else {
			body.Error = http.StatusText(he.Code)
		}
		if kind := apperr.KindOf(err); kind != apperr.KindInternal {
			body.Kind = kind.String()
		}

		if he.Code >= http.StatusInternalServerError {
			evt := withRequest(logger.Error().Err(err), c)
			var pe *PanicError
			if errors.As(err, &pe) {
				evt = evt.Bytes("stack", pe.Stack)
			}
			evt.Msg("request failed")
			body.Error = "internal server error"
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(he.Code)
		} else {
			writeErr = c.JSON(he.Code, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}

func requestID(c echo.Context) string {
	rid, _ := c.Get("request_id").(string)
	return rid
}
