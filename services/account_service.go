package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/edulab-dev/lms-bridge/domain"
	"github.com/edulab-dev/lms-bridge/errors"
)

// SessionTTL is how long a browser session stays valid.
const SessionTTL = 24 * time.Hour

// PasswordHasher abstracts password hashing for the account service.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) error
}

// RegisterInput is the payload for creating a local account.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// AccountService owns the local account lifecycle and calls the
// provisioning bridge explicitly from the create/update code paths. Bridge
// failures never fail the local operation.
type AccountService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	hasher   PasswordHasher
	bridge   *ProvisioningBridge
}

// NewAccountService creates a new AccountService. bridge may be nil in
// deployments without a remote learning system.
func NewAccountService(
	users domain.UserRepository,
	sessions domain.SessionRepository,
	hasher PasswordHasher,
	bridge *ProvisioningBridge,
) *AccountService {
	return &AccountService{users: users, sessions: sessions, hasher: hasher, bridge: bridge}
}

// Register creates a local account and mirrors it to the partner systems.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, errors.NewValidation("email", "missing or malformed")
	}
	if input.Password == "" {
		return nil, errors.NewValidation("password", "must not be empty")
	}
	if input.Username == "" {
		input.Username = input.Email
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hash,
		Status:       domain.UserStatusActive,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if s.bridge != nil {
		s.bridge.AccountCreated(ctx, user, input.Password)
	}
	return user, nil
}

// UpdateProfile applies a partial profile update and pushes the diff to the
// partner systems.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*domain.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	prev := *user

	if update.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*update.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, errors.NewValidation("email", "missing or malformed")
		}
		user.Email = email
	}
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	if s.bridge != nil {
		s.bridge.AccountUpdated(ctx, &prev, user)
	}
	return user, nil
}

// Login verifies credentials and opens a session.
func (s *AccountService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return nil, errors.ErrInvalidCredentials
	}
	if user.Status != domain.UserStatusActive {
		return nil, errors.ErrInvalidCredentials
	}
	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		return nil, errors.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	user.LastLoginAt = &now
	if err := s.users.UpdateUser(ctx, user); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to stamp last login")
	}
	return session, nil
}

// Logout deletes a session; a missing session is not an error.
func (s *AccountService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.DeleteSession(ctx, sessionID)
}

// UserForSession resolves a live session to its account.
func (s *AccountService) UserForSession(ctx context.Context, sessionID string) (*domain.User, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.users.GetUserByID(ctx, session.UserID)
}
