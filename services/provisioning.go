package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/edulab-dev/lms-bridge/domain"
	"github.com/edulab-dev/lms-bridge/downstream"
	berrors "github.com/edulab-dev/lms-bridge/errors"
	"github.com/edulab-dev/lms-bridge/internal/metrics"
	"github.com/edulab-dev/lms-bridge/moodle"
)

// MoodleUserAPI is the slice of the remote API the bridge needs.
type MoodleUserAPI interface {
	GetUserByEmail(ctx context.Context, email string) (*moodle.UserRecord, error)
	CreateUser(ctx context.Context, u moodle.NewUser) (int64, error)
	UpdateUser(ctx context.Context, remoteID int64, u moodle.UserUpdate) error
}

// ERPUserPusher mirrors accounts into the back-office system.
type ERPUserPusher interface {
	PushUser(ctx context.Context, record *downstream.UserRecord) error
}

// ProvisioningBridge mirrors local account lifecycle events into the remote
// learning system and the back-office consumer. It is fire-and-forget
// relative to the local operation: every failure is logged and dropped,
// nothing is queued or retried, and the local account action never rolls
// back.
type ProvisioningBridge struct {
	remote MoodleUserAPI
	links  domain.LinkRepository
	erp    ERPUserPusher
}

// NewProvisioningBridge creates a new ProvisioningBridge. erp may be nil
// when no back-office consumer is configured.
func NewProvisioningBridge(remote MoodleUserAPI, links domain.LinkRepository, erp ERPUserPusher) *ProvisioningBridge {
	return &ProvisioningBridge{remote: remote, links: links, erp: erp}
}

// AccountCreated mirrors a freshly created local account. If a remote user
// with the same email already exists it is linked as-is, without field
// overwrite. Remote passwords are deliberately never pushed for existing
// accounts; overwriting one would lock the person out of the remote system.
func (b *ProvisioningBridge) AccountCreated(ctx context.Context, user *domain.User, plainPassword string) {
	remoteUser, err := b.remote.GetUserByEmail(ctx, user.Email)
	switch {
	case err == nil:
		b.link(ctx, user.ID, remoteUser.ID)
		metrics.ProvisioningTotal.WithLabelValues("linked").Inc()

	case errors.Is(err, berrors.ErrNotFound):
		remoteID, err := b.remote.CreateUser(ctx, moodle.NewUser{
			Username:  user.Username,
			Password:  plainPassword,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
		})
		if err != nil {
			metrics.ProvisioningTotal.WithLabelValues("failed").Inc()
			log.Warn().Err(err).Str("user_id", user.ID).Msg("remote user creation failed")
			return
		}
		b.link(ctx, user.ID, remoteID)
		metrics.ProvisioningTotal.WithLabelValues("created").Inc()

	default:
		metrics.ProvisioningTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Str("user_id", user.ID).Msg("remote user lookup failed")
		return
	}

	b.mirrorToERP(ctx, user)
}

// AccountUpdated pushes a partial update when name or email changed.
// Unchanged fields are not transmitted.
func (b *ProvisioningBridge) AccountUpdated(ctx context.Context, prev, curr *domain.User) {
	update := moodle.UserUpdate{}
	changed := false
	if prev.FirstName != curr.FirstName {
		update.FirstName = &curr.FirstName
		changed = true
	}
	if prev.LastName != curr.LastName {
		update.LastName = &curr.LastName
		changed = true
	}
	if prev.Email != curr.Email {
		update.Email = &curr.Email
		changed = true
	}
	if !changed {
		return
	}

	link, err := b.links.GetLinkByLocal(ctx, domain.EntityUser, curr.ID)
	if err != nil {
		log.Warn().Str("user_id", curr.ID).Msg("account updated but no remote link exists, skipping push")
		return
	}
	if err := b.remote.UpdateUser(ctx, link.RemoteID, update); err != nil {
		metrics.ProvisioningTotal.WithLabelValues("failed").Inc()
		log.Warn().Err(err).Str("user_id", curr.ID).Msg("remote user update failed")
		return
	}
	metrics.ProvisioningTotal.WithLabelValues("updated").Inc()

	b.mirrorToERP(ctx, curr)
}

func (b *ProvisioningBridge) link(ctx context.Context, localID string, remoteID int64) {
	err := b.links.CreateLink(ctx, &domain.ExternalLink{
		EntityType: domain.EntityUser,
		RemoteID:   remoteID,
		LocalID:    localID,
	})
	if err != nil {
		// A duplicate insert means the account is already linked.
		log.Debug().Err(err).Str("user_id", localID).Int64("remote_id", remoteID).
			Msg("user link not created")
	}
}

func (b *ProvisioningBridge) mirrorToERP(ctx context.Context, user *domain.User) {
	if b.erp == nil {
		return
	}
	err := b.erp.PushUser(ctx, &downstream.UserRecord{
		LocalID:   user.ID,
		Email:     user.Email,
		Login:     user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("back-office mirror failed")
	}
}
