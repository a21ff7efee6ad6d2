package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulab-dev/lms-bridge/domain"
	"github.com/edulab-dev/lms-bridge/downstream"
	"github.com/edulab-dev/lms-bridge/errors"
	"github.com/edulab-dev/lms-bridge/moodle"
)

// fakeMoodleUsers is a scripted remote user directory.
type fakeMoodleUsers struct {
	byEmail   map[string]*moodle.UserRecord
	nextID    int64
	created   []moodle.NewUser
	updates   map[int64]moodle.UserUpdate
	lookupErr error
	createErr error
}

func newFakeMoodleUsers() *fakeMoodleUsers {
	return &fakeMoodleUsers{
		byEmail: make(map[string]*moodle.UserRecord),
		nextID:  500,
		updates: make(map[int64]moodle.UserUpdate),
	}
}

func (f *fakeMoodleUsers) GetUserByEmail(_ context.Context, email string) (*moodle.UserRecord, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, errors.ErrNotFound
}

func (f *fakeMoodleUsers) CreateUser(_ context.Context, u moodle.NewUser) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	f.created = append(f.created, u)
	f.byEmail[u.Email] = &moodle.UserRecord{ID: f.nextID, Username: u.Username, Email: u.Email}
	return f.nextID, nil
}

func (f *fakeMoodleUsers) UpdateUser(_ context.Context, remoteID int64, u moodle.UserUpdate) error {
	f.updates[remoteID] = u
	return nil
}

type recordingERP struct {
	users []*downstream.UserRecord
}

func (p *recordingERP) PushUser(_ context.Context, record *downstream.UserRecord) error {
	p.users = append(p.users, record)
	return nil
}

func localAccount() *domain.User {
	return &domain.User{
		ID:        "u-1",
		Email:     "ada@example.com",
		Username:  "ada",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestProvisioningBridge_AccountCreatedCreatesRemote(t *testing.T) {
	remote := newFakeMoodleUsers()
	links := &memLinkRepo{}
	erp := &recordingERP{}
	bridge := NewProvisioningBridge(remote, links, erp)
	ctx := context.Background()

	bridge.AccountCreated(ctx, localAccount(), "s3cret")

	require.Len(t, remote.created, 1)
	assert.Equal(t, "ada", remote.created[0].Username)
	assert.Equal(t, "s3cret", remote.created[0].Password)

	link, err := links.GetLinkByLocal(ctx, domain.EntityUser, "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(501), link.RemoteID)

	require.Len(t, erp.users, 1)
	assert.Equal(t, "ada@example.com", erp.users[0].Email)
}

func TestProvisioningBridge_AccountCreatedLinksExistingWithoutOverwrite(t *testing.T) {
	remote := newFakeMoodleUsers()
	remote.byEmail["ada@example.com"] = &moodle.UserRecord{ID: 777, Username: "ada_old", Email: "ada@example.com"}
	links := &memLinkRepo{}
	bridge := NewProvisioningBridge(remote, links, nil)
	ctx := context.Background()

	bridge.AccountCreated(ctx, localAccount(), "s3cret")

	// Matched by email: linked as-is, no create, no password push.
	assert.Empty(t, remote.created)
	assert.Empty(t, remote.updates)

	link, err := links.GetLinkByLocal(ctx, domain.EntityUser, "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(777), link.RemoteID)
}

func TestProvisioningBridge_AccountCreatedLookupFailureDropped(t *testing.T) {
	remote := newFakeMoodleUsers()
	remote.lookupErr = fmt.Errorf("remote down")
	links := &memLinkRepo{}
	erp := &recordingERP{}
	bridge := NewProvisioningBridge(remote, links, erp)
	ctx := context.Background()

	// Must not panic and must not leave partial state.
	bridge.AccountCreated(ctx, localAccount(), "s3cret")

	assert.Empty(t, remote.created)
	assert.Empty(t, links.links)
	assert.Empty(t, erp.users)
}

func TestProvisioningBridge_AccountUpdatedPushesDiffOnly(t *testing.T) {
	remote := newFakeMoodleUsers()
	links := &memLinkRepo{}
	require.NoError(t, links.CreateLink(context.Background(), &domain.ExternalLink{
		EntityType: domain.EntityUser, RemoteID: 777, LocalID: "u-1",
	}))
	bridge := NewProvisioningBridge(remote, links, nil)

	prev := localAccount()
	curr := localAccount()
	curr.LastName = "King"

	bridge.AccountUpdated(context.Background(), prev, curr)

	update, ok := remote.updates[777]
	require.True(t, ok)
	assert.Nil(t, update.FirstName)
	assert.Nil(t, update.Email)
	require.NotNil(t, update.LastName)
	assert.Equal(t, "King", *update.LastName)
}

func TestProvisioningBridge_AccountUpdatedNoChangesNoPush(t *testing.T) {
	remote := newFakeMoodleUsers()
	bridge := NewProvisioningBridge(remote, &memLinkRepo{}, nil)

	bridge.AccountUpdated(context.Background(), localAccount(), localAccount())
	assert.Empty(t, remote.updates)
}

func TestProvisioningBridge_AccountUpdatedWithoutLinkSkipped(t *testing.T) {
	remote := newFakeMoodleUsers()
	bridge := NewProvisioningBridge(remote, &memLinkRepo{}, nil)

	prev := localAccount()
	curr := localAccount()
	curr.Email = "new@example.com"

	bridge.AccountUpdated(context.Background(), prev, curr)
	assert.Empty(t, remote.updates)
}
