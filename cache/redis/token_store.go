package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edulab-dev/lms-bridge/cache"
	"github.com/edulab-dev/lms-bridge/domain"
	"github.com/edulab-dev/lms-bridge/errors"
)

// TokenStore implements cache.TokenStore on Redis hashes, one hash per
// (subject, service) pair, with the key TTL matched to token expiry.
type TokenStore struct {
	client *redis.Client
	prefix string
}

// NewTokenStore creates a new [TokenStore] instance.
func NewTokenStore(client *redis.Client, prefix string) *TokenStore {
	return &TokenStore{client: client, prefix: prefix}
}

func (r *TokenStore) redisKey(userID string, service domain.Service) string {
	return fmt.Sprintf("%s:sso:%s", r.prefix, cache.HashKey(userID, service))
}

// Set stores the current token for a pair, overwriting any previous value.
func (r *TokenStore) Set(ctx context.Context, entry *cache.TokenEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	key := r.redisKey(entry.UserID, entry.Service)

	fields := map[string]interface{}{
		"user_id":     entry.UserID,
		"service":     string(entry.Service),
		"token_value": entry.TokenValue,
		"issued_at":   entry.IssuedAt.Unix(),
		"expires_at":  entry.ExpiresAt.Unix(),
	}
	if _, err := r.client.HSet(ctx, key, fields).Result(); err != nil {
		return fmt.Errorf("failed to set token in redis: %w", err)
	}
	if _, err := r.client.Expire(ctx, key, ttl).Result(); err != nil {
		return fmt.Errorf("failed to set token expiry in redis: %w", err)
	}
	return nil
}

// Get retrieves the cached token entry for a pair.
func (r *TokenStore) Get(ctx context.Context, userID string, service domain.Service) (*cache.TokenEntry, error) {
	res, err := r.client.HGetAll(ctx, r.redisKey(userID, service)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read token from redis: %w", err)
	}
	if len(res) == 0 {
		return nil, errors.ErrNotFound
	}

	issuedAt, err := parseUnix(res["issued_at"])
	if err != nil {
		return nil, err
	}
	expiresAt, err := parseUnix(res["expires_at"])
	if err != nil {
		return nil, err
	}

	return &cache.TokenEntry{
		UserID:     res["user_id"],
		Service:    domain.Service(res["service"]),
		TokenValue: res["token_value"],
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
	}, nil
}

// Delete removes the cached token for a pair.
func (r *TokenStore) Delete(ctx context.Context, userID string, service domain.Service) error {
	_, err := r.client.Del(ctx, r.redisKey(userID, service)).Result()
	return err
}

// Clear removes all cached tokens under this store's prefix.
func (r *TokenStore) Clear(ctx context.Context) error {
	pattern := fmt.Sprintf("%s:sso:*", r.prefix)
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if _, err := r.client.Del(ctx, keys...).Result(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Count returns the number of cached tokens under this store's prefix.
func (r *TokenStore) Count(ctx context.Context) int {
	pattern := fmt.Sprintf("%s:sso:*", r.prefix)
	var count int
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return count
		}
		count += len(keys)
		if next == 0 {
			return count
		}
		cursor = next
	}
}

func parseUnix(s string) (time.Time, error) {
	var sec int64
	if _, err := fmt.Sscanf(s, "%d", &sec); err != nil {
		return time.Time{}, fmt.Errorf("malformed unix timestamp %q: %w", s, err)
	}
	return time.Unix(sec, 0), nil
}

var _ cache.TokenStore = (*TokenStore)(nil)
