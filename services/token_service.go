package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edulab-dev/lms-bridge/cache"
	"github.com/edulab-dev/lms-bridge/domain"
	"github.com/edulab-dev/lms-bridge/errors"
	"github.com/edulab-dev/lms-bridge/internal/metrics"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = time.Hour

// TokenService issues and verifies the opaque identity tokens that carry a
// signed-in user across application boundaries. One current token is kept
// per (subject, service); issuing overwrites it, which is the only
// invalidation mechanism. Verification is equality against that stored
// value plus an expiry check — the token is effectively an opaque session
// id held server-side, not a self-verifying credential.
type TokenService struct {
	users  domain.UserRepository
	tokens domain.TokenRepository
	cache  cache.TokenStore
	secret []byte
	apiKey string
	ttl    time.Duration
}

// NewTokenService creates a new TokenService instance.
func NewTokenService(
	users domain.UserRepository,
	tokens domain.TokenRepository,
	tokenCache cache.TokenStore,
	secret string,
	apiKey string,
	ttl time.Duration,
) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		users:  users,
		tokens: tokens,
		cache:  tokenCache,
		secret: []byte(secret),
		apiKey: apiKey,
		ttl:    ttl,
	}
}

// Issue creates a fresh token for (subject, service), silently replacing
// any existing one. The embedded MAC makes the opaque value unguessable;
// it is not recomputed during verification.
func (s *TokenService) Issue(ctx context.Context, userID string, service domain.Service) (*domain.SSOToken, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cannot issue token for unknown subject: %w", err)
	}

	issuedAt := time.Now().UTC().Truncate(time.Second)
	mac := s.sign(user.ID, user.Email, service, issuedAt)
	opaque := base64.RawURLEncoding.EncodeToString([]byte(user.ID + ":" + mac))

	token := &domain.SSOToken{
		UserID:     user.ID,
		Service:    service,
		TokenValue: opaque,
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(s.ttl),
	}
	if err := s.tokens.PutToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	if err := s.cache.Set(ctx, &cache.TokenEntry{
		UserID:     token.UserID,
		Service:    token.Service,
		TokenValue: token.TokenValue,
		IssuedAt:   token.IssuedAt,
		ExpiresAt:  token.ExpiresAt,
	}); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to cache issued token")
	}

	metrics.TokensIssuedTotal.Inc()
	return token, nil
}

// EnsureToken returns the current token for (subject, service), issuing a
// fresh one when none exists or the stored one has expired.
func (s *TokenService) EnsureToken(ctx context.Context, userID string, service domain.Service) (*domain.SSOToken, error) {
	current, err := s.currentToken(ctx, userID, service)
	if err == nil && !current.Expired(time.Now()) {
		return current, nil
	}
	return s.Issue(ctx, userID, service)
}

// Verify checks an opaque value against the stored current token for the
// subject it decodes to. Expired, mismatched, or unknown-subject tokens
// yield ErrInvalidToken; Verify never returns any other failure for a bad
// token, so callers can fold it straight into a redirect.
func (s *TokenService) Verify(ctx context.Context, opaqueValue string, service domain.Service) (*domain.SubjectIdentity, error) {
	userID, ok := decodeSubject(opaqueValue)
	if !ok {
		metrics.TokenVerificationsTotal.WithLabelValues("malformed").Inc()
		return nil, errors.ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues("unknown_subject").Inc()
		return nil, errors.ErrInvalidToken
	}

	current, err := s.currentToken(ctx, userID, service)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues("no_token").Inc()
		return nil, errors.ErrInvalidToken
	}
	if current.Expired(time.Now()) {
		metrics.TokenVerificationsTotal.WithLabelValues("expired").Inc()
		return nil, errors.ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(current.TokenValue), []byte(opaqueValue)) != 1 {
		metrics.TokenVerificationsTotal.WithLabelValues("mismatch").Inc()
		return nil, errors.ErrInvalidToken
	}

	metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()
	return &domain.SubjectIdentity{
		UserID: user.ID,
		Email:  user.Email,
		Login:  user.Username,
		Name:   user.DisplayName(),
	}, nil
}

// VerifyForPartner is Verify behind the shared API key gate used by partner
// applications. A missing or wrong key is rejected before the token is even
// inspected, and the failure is distinct from an invalid token.
func (s *TokenService) VerifyForPartner(ctx context.Context, apiKey, opaqueValue string, service domain.Service) (*domain.SubjectIdentity, error) {
	if subtle.ConstantTimeCompare([]byte(apiKey), []byte(s.apiKey)) != 1 {
		metrics.TokenVerificationsTotal.WithLabelValues("unauthorized").Inc()
		return nil, errors.ErrUnauthorized
	}
	return s.Verify(ctx, opaqueValue, service)
}

// currentToken reads the stored token, preferring the cache. A repository
// hit refills the cache.
func (s *TokenService) currentToken(ctx context.Context, userID string, service domain.Service) (*domain.SSOToken, error) {
	if entry, err := s.cache.Get(ctx, userID, service); err == nil {
		return &domain.SSOToken{
			UserID:     entry.UserID,
			Service:    entry.Service,
			TokenValue: entry.TokenValue,
			IssuedAt:   entry.IssuedAt,
			ExpiresAt:  entry.ExpiresAt,
		}, nil
	}

	token, err := s.tokens.GetCurrentToken(ctx, userID, service)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, &cache.TokenEntry{
		UserID:     token.UserID,
		Service:    token.Service,
		TokenValue: token.TokenValue,
		IssuedAt:   token.IssuedAt,
		ExpiresAt:  token.ExpiresAt,
	}); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to refill token cache")
	}
	return token, nil
}

func (s *TokenService) sign(userID, email string, service domain.Service, issuedAt time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s|%s|%d", userID, email, service, issuedAt.Unix())
	return hex.EncodeToString(mac.Sum(nil))
}

// decodeSubject recovers the candidate subject id from an opaque value.
func decodeSubject(opaqueValue string) (string, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(opaqueValue)
	if err != nil {
		return "", false
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}
