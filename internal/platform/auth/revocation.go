package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker tracks revoked token ids until the token would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "mediflow:revoked:"

// RedisRevocationStore keeps revoked jtis in Redis so every server instance
// sees a logout. Keys expire with the token.
type RedisRevocationStore struct {
	rdb redis.UniversalClient
	now func() time.Time
}

func NewRedisRevocationStore(rdb redis.UniversalClient) *RedisRevocationStore {
	return &RedisRevocationStore{rdb: rdb, now: time.Now}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke %s: %w", jti, err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedKeyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation %s: %w", jti, err)
	}
	return n > 0, nil
}

// MemoryRevocationStore is the single-process fallback used when no Redis
// URL is configured.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{entries: make(map[string]time.Time), now: time.Now}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanupLocked()
	if expiresAt.After(s.now()) {
		s.entries[jti] = expiresAt
	}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[jti]
	if !ok {
		return false, nil
	}
	if !exp.After(s.now()) {
		delete(s.entries, jti)
		return false, nil
	}
	return true, nil
}

// cleanupLocked drops entries whose tokens have expired.
func (s *MemoryRevocationStore) cleanupLocked() {
	now := s.now()
	for jti, exp := range s.entries {
		if !exp.After(now) {
			delete(s.entries, jti)
		}
	}
}
