package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore tracks sessions that must be rejected before their
// natural expiry: single tokens (logout, refresh) and every token issued
// to an employee up to a cutoff (deactivation).
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	RevokeAllForUser(ctx context.Context, employeeID string, at time.Time) error
	IsRevoked(ctx context.Context, claims *Claims) (bool, error)
}

// MemoryRevocationStore is the in-process RevocationStore used when no
// Redis is configured. Expired entries are swept every 5 minutes.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti -> token expiry
	cutoffs map[string]time.Time // employee id -> revoke tokens issued at or before
	done    chan struct{}
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		cutoffs: make(map[string]time.Time),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go s.cleanupLoop()
	return s
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = expiresAt
	return nil
}

func (s *MemoryRevocationStore) RevokeAllForUser(_ context.Context, employeeID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs[employeeID] = at
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, claims *Claims) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.entries[claims.ID]; ok {
		return true, nil
	}
	return issuedBefore(claims, s.cutoffs[claims.Subject]), nil
}

// Count returns the number of individually revoked tokens.
func (s *MemoryRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *MemoryRevocationStore) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *MemoryRevocationStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup drops entries whose tokens could no longer pass expiry checks.
func (s *MemoryRevocationStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, jti)
		}
	}
	for id, cutoff := range s.cutoffs {
		if now.After(cutoff.Add(RememberTTL)) {
			delete(s.cutoffs, id)
		}
	}
}

func issuedBefore(claims *Claims, cutoff time.Time) bool {
	if cutoff.IsZero() {
		return false
	}
	if claims.IssuedAt == nil {
		return true
	}
	return !claims.IssuedAt.Time.After(cutoff)
}
