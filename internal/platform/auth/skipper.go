package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists routes reachable without a session: health checks and
// the credential endpoints that establish or recover one.
var publicPaths = map[string]bool{
	"/health":                          true,
	"/health/db":                       true,
	"/api/v1/auth/login":               true,
	"/api/v1/auth/2fa/verify":          true,
	"/api/v1/auth/unlock/request":      true,
	"/api/v1/auth/unlock":              true,
	"/api/v1/auth/password/forgot":     true,
	"/api/v1/auth/password/reset":      true,
	"/api/v1/auth/verify-email":        true,
	"/api/v1/auth/verify-email/resend": true,
}

// AuthSkipper reports whether the matched route is public.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Path())
}

// IsPublicPath matches a route pattern, not a request URL: "/api/v1/wards/:id"
// rather than "/api/v1/wards/42".
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
