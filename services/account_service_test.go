package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulab-dev/lms-bridge/domain"
	"github.com/edulab-dev/lms-bridge/errors"
)

type memSessionRepo struct {
	sessions map[string]*domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (m *memSessionRepo) CreateSession(_ context.Context, session *domain.Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessionRepo) GetSession(_ context.Context, id string) (*domain.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return nil, errors.ErrNotFound
}

func (m *memSessionRepo) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

// plainHasher makes password assertions readable in tests.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Verify(hashedPassword, password string) error {
	if hashedPassword != "hashed:"+password {
		return fmt.Errorf("password mismatch")
	}
	return nil
}

func newTestAccountService(bridge *ProvisioningBridge) (*AccountService, *memUserRepo, *memSessionRepo) {
	users := newMemUserRepo()
	sessions := newMemSessionRepo()
	return NewAccountService(users, sessions, plainHasher{}, bridge), users, sessions
}

func TestAccountService_RegisterProvisionsRemote(t *testing.T) {
	remote := newFakeMoodleUsers()
	links := &memLinkRepo{}
	bridge := NewProvisioningBridge(remote, links, nil)
	svc, users, _ := newTestAccountService(bridge)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{
		Email:     "Ada@Example.com",
		Password:  "s3cret",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	// Username defaults to the email when absent.
	assert.Equal(t, "ada@example.com", user.Username)
	assert.Equal(t, domain.UserStatusActive, user.Status)
	assert.Len(t, users.users, 1)

	// The remote mirror got the plaintext password, the local store a hash.
	require.Len(t, remote.created, 1)
	assert.Equal(t, "s3cret", remote.created[0].Password)
	assert.Equal(t, "hashed:s3cret", user.PasswordHash)

	_, err = links.GetLinkByLocal(ctx, domain.EntityUser, user.ID)
	assert.NoError(t, err)
}

func TestAccountService_RegisterValidation(t *testing.T) {
	svc, _, _ := newTestAccountService(nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "not-an-email", Password: "x"})
	var ve *errors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)

	_, err = svc.Register(ctx, RegisterInput{Email: "a@b.com"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)
}

func TestAccountService_LoginAndSessionRoundtrip(t *testing.T) {
	svc, _, _ := newTestAccountService(nil)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "s3cret"})
	require.NoError(t, err)

	session, err := svc.Login(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)

	user, err := svc.UserForSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotNil(t, user.LastLoginAt)

	require.NoError(t, svc.Logout(ctx, session.ID))
	_, err = svc.UserForSession(ctx, session.ID)
	assert.Error(t, err)
}

func TestAccountService_LoginFailures(t *testing.T) {
	svc, users, _ := newTestAccountService(nil)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "s3cret"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, errors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, errors.ErrInvalidCredentials)

	users.users[registered.ID].Status = domain.UserStatusLocked
	_, err = svc.Login(ctx, "ada@example.com", "s3cret")
	assert.ErrorIs(t, err, errors.ErrInvalidCredentials)
}

func TestAccountService_UpdateProfileMirrorsDiff(t *testing.T) {
	remote := newFakeMoodleUsers()
	links := &memLinkRepo{}
	bridge := NewProvisioningBridge(remote, links, nil)
	svc, _, _ := newTestAccountService(bridge)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "s3cret", FirstName: "Ada"})
	require.NoError(t, err)
	link, err := links.GetLinkByLocal(ctx, domain.EntityUser, user.ID)
	require.NoError(t, err)

	newLast := "King"
	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{LastName: &newLast})
	require.NoError(t, err)
	assert.Equal(t, "King", updated.LastName)

	update, ok := remote.updates[link.RemoteID]
	require.True(t, ok)
	require.NotNil(t, update.LastName)
	assert.Equal(t, "King", *update.LastName)
	assert.Nil(t, update.FirstName)
}

func TestAccountService_UpdateProfileRejectsBadEmail(t *testing.T) {
	svc, _, _ := newTestAccountService(nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "ada@example.com", Password: "s3cret"})
	require.NoError(t, err)

	bad := "nope"
	_, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Email: &bad})
	var ve *errors.ValidationError
	assert.ErrorAs(t, err, &ve)
}
