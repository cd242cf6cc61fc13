package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	revokedKeyPrefix = "auth:revoked:"
	cutoffKeyPrefix  = "auth:revoked-before:"
)

// RedisRevocationStore shares revocations across server instances. Keys
// expire together with the tokens they describe.
type RedisRevocationStore struct {
	rdb redis.UniversalClient
}

func NewRedisRevocationStore(rdb redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{rdb: rdb}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, revokedKeyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) RevokeAllForUser(ctx context.Context, employeeID string, at time.Time) error {
	err := s.rdb.Set(ctx, cutoffKeyPrefix+employeeID, at.Unix(), RememberTTL).Err()
	if err != nil {
		return fmt.Errorf("revoke sessions for %s: %w", employeeID, err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedKeyPrefix+claims.ID).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	raw, err := s.rdb.Get(ctx, cutoffKeyPrefix+claims.Subject).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check session cutoff: %w", err)
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse session cutoff: %w", err)
	}
	return issuedBefore(claims, time.Unix(unix, 0)), nil
}
