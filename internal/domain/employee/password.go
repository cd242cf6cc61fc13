package employee

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/futuremed/wardcare/internal/platform/apperr"
)

const MinPasswordLength = 8

// hashCost is lowered by tests.
var hashCost = bcrypt.DefaultCost

const bcryptPrefix = "$2"

// HashSecret bcrypt-hashes a password, reset PIN or one-time token.
func HashSecret(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(b), nil
}

// CompareSecret checks plain against a bcrypt hash.
func CompareSecret(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// CheckPassword verifies plain against the stored credential. Stored values
// without the bcrypt prefix are legacy plain-text credentials; legacy reports
// that path so the caller can rehash on success.
func CheckPassword(stored, plain string) (ok, legacy bool) {
	if stored == "" {
		return false, false
	}
	if strings.HasPrefix(stored, bcryptPrefix) {
		return CompareSecret(stored, plain), false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) == 1, true
}

func ValidatePassword(p string) error {
	if len(p) < MinPasswordLength {
		return apperr.Validation(fmt.Sprintf("Password must be at least %d characters.", MinPasswordLength))
	}
	return nil
}

// NewResetPIN returns a random 6-digit PIN.
func NewResetPIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func isSixDigits(pin string) bool {
	if len(pin) != 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
