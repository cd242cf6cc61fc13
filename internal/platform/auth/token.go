package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	SessionTTL  = 60 * time.Minute
	RememberTTL = 14 * 24 * time.Hour
)

// Claims is the session principal carried by every authenticated request.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
	Remember bool   `json:"remember"`
}

// Principal identifies the employee a session is issued for.
type Principal struct {
	EmployeeID uuid.UUID
	Username   string
	Role       string
}

// IssuedToken is a signed session token and the metadata callers need to
// report or revoke it.
type IssuedToken struct {
	Token     string    `json:"token"`
	JTI       string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	key    []byte
	issuer string
	now    func() time.Time
}

func NewTokenIssuer(key []byte, issuer string) (*TokenIssuer, error) {
	if len(key) < 32 {
		return nil, fmt.Errorf("signing key must be at least 32 bytes, got %d", len(key))
	}
	return &TokenIssuer{key: key, issuer: issuer, now: time.Now}, nil
}

// Issue signs a new token. Remembered sessions last RememberTTL, all others SessionTTL.
func (i *TokenIssuer) Issue(p Principal, remember bool) (*IssuedToken, error) {
	now := i.now()
	ttl := SessionTTL
	if remember {
		ttl = RememberTTL
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.EmployeeID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: p.Username,
		Role:     p.Role,
		Remember: remember,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &IssuedToken{Token: signed, JTI: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Parse verifies signature, issuer and expiry and returns the claims.
func (i *TokenIssuer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	return claims, nil
}

// Principal returns the principal encoded in the claims.
func (c *Claims) Principal() Principal {
	id, _ := uuid.Parse(c.Subject)
	return Principal{EmployeeID: id, Username: c.Username, Role: c.Role}
}
