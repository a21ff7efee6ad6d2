package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulab-dev/lms-bridge/cache"
	"github.com/edulab-dev/lms-bridge/domain"
	"github.com/edulab-dev/lms-bridge/errors"
)

// --- In-memory fakes ---

type memUserRepo struct {
	users map[string]*domain.User
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	repo := &memUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *memUserRepo) CreateUser(_ context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("u-%d", len(m.users)+1)
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUserRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, errors.ErrNotFound
}

func (m *memUserRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (m *memUserRepo) UpdateUser(_ context.Context, user *domain.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return errors.ErrNotFound
	}
	m.users[user.ID] = user
	return nil
}

type memTokenRepo struct {
	tokens map[string]*domain.SSOToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: make(map[string]*domain.SSOToken)}
}

func (m *memTokenRepo) key(userID string, service domain.Service) string {
	return userID + "|" + string(service)
}

func (m *memTokenRepo) PutToken(_ context.Context, token *domain.SSOToken) error {
	m.tokens[m.key(token.UserID, token.Service)] = token
	return nil
}

func (m *memTokenRepo) GetCurrentToken(_ context.Context, userID string, service domain.Service) (*domain.SSOToken, error) {
	if t, ok := m.tokens[m.key(userID, service)]; ok {
		return t, nil
	}
	return nil, errors.ErrNotFound
}

func testUser() *domain.User {
	return &domain.User{
		ID:        "u-1",
		Email:     "ada@example.com",
		Username:  "ada",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Status:    domain.UserStatusActive,
	}
}

func newTestTokenService(ttl time.Duration) (*TokenService, *memTokenRepo) {
	repo := newMemTokenRepo()
	svc := NewTokenService(
		newMemUserRepo(testUser()), repo, cache.NewMemoryTokenStore(),
		"test-secret", "partner-key", ttl,
	)
	return svc, repo
}

// --- Tests ---

func TestTokenService_IssueThenVerify(t *testing.T) {
	svc, _ := newTestTokenService(time.Hour)
	ctx := context.Background()

	token, err := svc.Issue(ctx, "u-1", domain.ServiceMoodle)
	require.NoError(t, err)
	require.NotEmpty(t, token.TokenValue)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)

	identity, err := svc.Verify(ctx, token.TokenValue, domain.ServiceMoodle)
	require.NoError(t, err)
	assert.Equal(t, "u-1", identity.UserID)
	assert.Equal(t, "ada@example.com", identity.Email)
	assert.Equal(t, "ada", identity.Login)
	assert.Equal(t, "Ada Lovelace", identity.Name)
}

func TestTokenService_VerifyAfterExpiry(t *testing.T) {
	svc, _ := newTestTokenService(time.Millisecond)
	ctx := context.Background()

	token, err := svc.Issue(ctx, "u-1", domain.ServiceMoodle)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, err = svc.Verify(ctx, token.TokenValue, domain.ServiceMoodle)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestTokenService_ReissueInvalidatesPrevious(t *testing.T) {
	svc, _ := newTestTokenService(time.Hour)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "u-1", domain.ServiceMoodle)
	require.NoError(t, err)

	// Issue timestamps are second-granular; force a distinct value.
	time.Sleep(1100 * time.Millisecond)
	second, err := svc.Issue(ctx, "u-1", domain.ServiceMoodle)
	require.NoError(t, err)
	require.NotEqual(t, first.TokenValue, second.TokenValue)

	_, err = svc.Verify(ctx, first.TokenValue, domain.ServiceMoodle)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)

	identity, err := svc.Verify(ctx, second.TokenValue, domain.ServiceMoodle)
	require.NoError(t, err)
	assert.Equal(t, "u-1", identity.UserID)
}

func TestTokenService_UnauthorizedBeforeTokenInspection(t *testing.T) {
	svc, _ := newTestTokenService(time.Hour)
	ctx := context.Background()

	token, err := svc.Issue(ctx, "u-1", domain.ServiceMoodle)
	require.NoError(t, err)

	// Even a perfectly valid token is rejected on a wrong key, and the
	// failure is distinct from an invalid token.
	_, err = svc.VerifyForPartner(ctx, "wrong-key", token.TokenValue, domain.ServiceMoodle)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	identity, err := svc.VerifyForPartner(ctx, "partner-key", token.TokenValue, domain.ServiceMoodle)
	require.NoError(t, err)
	assert.Equal(t, "u-1", identity.UserID)
}

func TestTokenService_VerifyUnknownSubject(t *testing.T) {
	svc, _ := newTestTokenService(time.Hour)
	ctx := context.Background()

	token, err := svc.Issue(ctx, "u-1", domain.ServiceMoodle)
	require.NoError(t, err)

	// Remove the subject behind the token.
	svc2 := NewTokenService(newMemUserRepo(), newMemTokenRepo(), cache.NewMemoryTokenStore(),
		"test-secret", "partner-key", time.Hour)
	_, err = svc2.Verify(ctx, token.TokenValue, domain.ServiceMoodle)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestTokenService_VerifyMalformedOpaqueValue(t *testing.T) {
	svc, _ := newTestTokenService(time.Hour)

	_, err := svc.Verify(context.Background(), "%%%not-base64%%%", domain.ServiceMoodle)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestTokenService_VerifyServiceScoped(t *testing.T) {
	svc, _ := newTestTokenService(time.Hour)
	ctx := context.Background()

	token, err := svc.Issue(ctx, "u-1", domain.ServiceMoodle)
	require.NoError(t, err)

	// A moodle token is not valid for the erp service.
	_, err = svc.Verify(ctx, token.TokenValue, domain.ServiceERP)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestTokenService_EnsureTokenReusesCurrent(t *testing.T) {
	svc, _ := newTestTokenService(time.Hour)
	ctx := context.Background()

	first, err := svc.EnsureToken(ctx, "u-1", domain.ServiceMoodle)
	require.NoError(t, err)
	second, err := svc.EnsureToken(ctx, "u-1", domain.ServiceMoodle)
	require.NoError(t, err)
	assert.Equal(t, first.TokenValue, second.TokenValue)
}

func TestTokenService_EnsureTokenReplacesExpired(t *testing.T) {
	svc, repo := newTestTokenService(time.Hour)
	ctx := context.Background()

	stale := &domain.SSOToken{
		UserID:     "u-1",
		Service:    domain.ServiceMoodle,
		TokenValue: "stale-value",
		IssuedAt:   time.Now().Add(-2 * time.Hour),
		ExpiresAt:  time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.PutToken(ctx, stale))

	fresh, err := svc.EnsureToken(ctx, "u-1", domain.ServiceMoodle)
	require.NoError(t, err)
	assert.NotEqual(t, "stale-value", fresh.TokenValue)
	assert.True(t, fresh.ExpiresAt.After(time.Now()))
}
