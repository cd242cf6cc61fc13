package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// SuperRole satisfies every role requirement.
const SuperRole = "ADMINISTRATOR"

// RequireRole returns middleware that checks the session role against roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasRole(RoleFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

func HasRole(has string, roles ...string) bool {
	if has == "" {
		return false
	}
	if has == SuperRole {
		return true
	}
	for _, required := range roles {
		if has == required {
			return true
		}
	}
	return false
}

// CurrentEmployee is a handler helper that fails with 401 when the request
// carries no authenticated employee.
func CurrentEmployee(c echo.Context) (Principal, error) {
	claims := ClaimsFromContext(c.Request().Context())
	if claims == nil {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return claims.Principal(), nil
}
