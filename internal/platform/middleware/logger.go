package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/futuremed/wardcare/internal/platform/auth"
)

func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}

			evt := logger.Info()
			switch {
			case status >= 500:
				evt = logger.Error().Err(err)
			case err != nil:
				evt = logger.Warn().Err(err)
			}

			withRequest(evt, c).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP()).
				Msg("request")

			return err
		}
	}
}

// withRequest adds the fields every request-scoped log line carries.
func withRequest(evt *zerolog.Event, c echo.Context) *zerolog.Event {
	req := c.Request()
	if emp, ok := auth.EmployeeIDFromContext(req.Context()); ok {
		evt = evt.Str("employee_id", emp.String())
	}
	return evt.
		Str("request_id", requestID(c)).
		Str("method", req.Method).
		Str("path", req.URL.Path)
}
