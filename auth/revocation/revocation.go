// Package revocation stores revoked token IDs until their natural expiry.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "fintrack:revoked"

var errRedisUnavailable = errors.New("revocation redis unavailable")

// RedisStore keeps revoked token IDs as expiring redis keys.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore creates a store on client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client, prefix: keyPrefix}
}

func (s *RedisStore) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

// Revoke marks tokenID revoked for ttl.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not expired.
func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return n > 0, nil
}

// MemoryStore is an in-process store for single node deployments.
type MemoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{revoked: make(map[string]time.Time), now: time.Now}
}

// Revoke marks tokenID revoked for ttl.
func (s *MemoryStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[tokenID] = s.now().Add(ttl)
	s.sweep()
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not expired.
func (s *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.revoked, tokenID)
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) sweep() {
	now := s.now()
	for id, until := range s.revoked {
		if !now.Before(until) {
			delete(s.revoked, id)
		}
	}
}
