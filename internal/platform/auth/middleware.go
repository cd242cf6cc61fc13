package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	EmployeeIDKey contextKey = "employee_id"
	UsernameKey   contextKey = "username"
	RoleKey       contextKey = "role"
	ClaimsKey     contextKey = "claims"
)

type JWTConfig struct {
	Tokens      *TokenIssuer
	Revocations RevocationStore
	// Skipper lets public routes through without a token.
	Skipper func(c echo.Context) bool
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims, err := cfg.Tokens.Parse(tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if cfg.Revocations != nil {
				revoked, err := cfg.Revocations.IsRevoked(c.Request().Context(), claims)
				if err != nil {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unavailable").SetInternal(err)
				}
				if revoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
				}
			}

			c.SetRequest(c.Request().WithContext(WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter for browser WebSocket clients.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if tok := c.QueryParam("access_token"); tok != "" {
			return tok, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return parts[1], nil
}

// WithClaims stores the session principal on ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	ctx = context.WithValue(ctx, EmployeeIDKey, claims.Subject)
	ctx = context.WithValue(ctx, UsernameKey, claims.Username)
	ctx = context.WithValue(ctx, RoleKey, claims.Role)
	return ctx
}

func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsKey).(*Claims)
	return claims
}

// EmployeeIDFromContext returns the authenticated employee's id.
func EmployeeIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	raw, _ := ctx.Value(EmployeeIDKey).(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func UsernameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(UsernameKey).(string)
	return name
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}
