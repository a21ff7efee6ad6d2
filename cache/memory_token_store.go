package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/edulab-dev/lms-bridge/domain"
	"github.com/edulab-dev/lms-bridge/errors"
)

// MemoryTokenStore implements TokenStore using ttlcache.
type MemoryTokenStore struct {
	cache *ttlcache.Cache[string, *TokenEntry]
}

// NewMemoryTokenStore creates an in-memory token store with automatic
// expiry cleanup.
func NewMemoryTokenStore() *MemoryTokenStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *TokenEntry](),
	)
	go cache.Start()

	return &MemoryTokenStore{cache: cache}
}

// Set implements TokenStore.Set.
func (s *MemoryTokenStore) Set(_ context.Context, entry *TokenEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(HashKey(entry.UserID, entry.Service), entry, ttl)
	return nil
}

// Get implements TokenStore.Get.
func (s *MemoryTokenStore) Get(_ context.Context, userID string, service domain.Service) (*TokenEntry, error) {
	item := s.cache.Get(HashKey(userID, service))
	if item == nil {
		return nil, errors.ErrNotFound
	}
	return item.Value(), nil
}

// Delete removes the cached token for one (subject, service) pair.
func (s *MemoryTokenStore) Delete(_ context.Context, userID string, service domain.Service) error {
	s.cache.Delete(HashKey(userID, service))
	return nil
}

// Clear removes all cached tokens.
func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.cache.DeleteAll()
	return nil
}

// Count counts cached tokens.
func (s *MemoryTokenStore) Count(_ context.Context) int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine.
func (s *MemoryTokenStore) Close() error {
	s.cache.Stop()
	return nil
}
