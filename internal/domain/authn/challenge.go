package authn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	challengeKeyPrefix = "authn:challenge:"
	setupKeyPrefix     = "authn:totp-setup:"

	// MaxChallengeAttempts bounds wrong codes per challenge.
	MaxChallengeAttempts = 5
	SetupTTL             = 10 * time.Minute
)

// Challenge is the pending-login state between a correct password and the
// second factor. It is stored server-side and consumed on use.
type Challenge struct {
	Token             string    `json:"token"`
	EmployeeID        uuid.UUID `json:"employee_id"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	RememberDevice    bool      `json:"remember_device"`
	RememberMe        bool      `json:"remember_me"`
	Attempts          int       `json:"attempts"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// ChallengeStore persists challenges in a Store under opaque tokens.
type ChallengeStore struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewChallengeStore(store Store, ttl time.Duration) *ChallengeStore {
	return &ChallengeStore{store: store, ttl: ttl, now: time.Now}
}

// Open creates and stores a new challenge.
func (s *ChallengeStore) Open(ctx context.Context, employeeID uuid.UUID, fingerprint string, rememberDevice, rememberMe bool) (*Challenge, error) {
	c := &Challenge{
		Token:             uuid.NewString(),
		EmployeeID:        employeeID,
		DeviceFingerprint: fingerprint,
		RememberDevice:    rememberDevice,
		RememberMe:        rememberMe,
		ExpiresAt:         s.now().Add(s.ttl),
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Consume removes the challenge and returns it. A missing or expired token
// yields ErrMissing.
func (s *ChallengeStore) Consume(ctx context.Context, token string) (*Challenge, error) {
	if token == "" {
		return nil, ErrMissing
	}
	raw, err := s.store.Take(ctx, challengeKeyPrefix+token)
	if err != nil {
		return nil, err
	}
	var c Challenge
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	if !c.ExpiresAt.After(s.now()) {
		return nil, ErrMissing
	}
	return &c, nil
}

// Retry puts a consumed challenge back after a wrong code, keeping its
// original expiry. It reports false once the attempt budget is spent.
func (s *ChallengeStore) Retry(ctx context.Context, c *Challenge) (bool, error) {
	c.Attempts++
	if c.Attempts >= MaxChallengeAttempts || !c.ExpiresAt.After(s.now()) {
		return false, nil
	}
	if err := s.save(ctx, c); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ChallengeStore) save(ctx context.Context, c *Challenge) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}
	ttl := c.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("challenge already expired")
	}
	return s.store.Set(ctx, challengeKeyPrefix+c.Token, raw, ttl)
}
