package cache

import (
	"context"
	"time"

	"github.com/edulab-dev/lms-bridge/domain"
)

// TokenEntry is a cached copy of the current SSO token for one
// (subject, service) pair. Because issue overwrites the same key, a stale
// entry can never outlive a reissue.
type TokenEntry struct {
	UserID     string         `redis:"userId"`
	Service    domain.Service `redis:"service"`
	TokenValue string         `redis:"tokenValue"`
	IssuedAt   time.Time      `redis:"issuedAt"`
	ExpiresAt  time.Time      `redis:"expiresAt"`
}

// TokenStore is a read-through cache in front of the token repository.
type TokenStore interface {
	Set(ctx context.Context, entry *TokenEntry) error
	Get(ctx context.Context, userID string, service domain.Service) (*TokenEntry, error)
	Delete(ctx context.Context, userID string, service domain.Service) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) int
}
