package domain

import "context"

// UserRepository persists local accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
}

// SessionRepository persists browser sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// TokenRepository holds the single current SSO token per (subject, service).
type TokenRepository interface {
	// PutToken overwrites any existing token for the same (user, service).
	PutToken(ctx context.Context, token *SSOToken) error
	// GetCurrentToken returns the stored token, or ErrNotFound.
	GetCurrentToken(ctx context.Context, userID string, service Service) (*SSOToken, error)
}

// LinkRepository persists local-to-remote entity correspondences.
type LinkRepository interface {
	CreateLink(ctx context.Context, link *ExternalLink) error
	// GetLinkByRemote returns the link for (entityType, remoteID), or ErrNotFound.
	GetLinkByRemote(ctx context.Context, entityType EntityType, remoteID int64) (*ExternalLink, error)
	// GetLinkByLocal returns the link for (entityType, localID), or ErrNotFound.
	GetLinkByLocal(ctx context.Context, entityType EntityType, localID string) (*ExternalLink, error)
	ListLinksByType(ctx context.Context, entityType EntityType) ([]*ExternalLink, error)
}

// TermRepository persists course categories.
type TermRepository interface {
	CreateTerm(ctx context.Context, term *Term) (string, error)
	UpdateTerm(ctx context.Context, term *Term) error
	SetTermParent(ctx context.Context, termID, parentID string) error
	GetTermByID(ctx context.Context, id string) (*Term, error)
}

// CourseRepository persists local course records and their rosters.
type CourseRepository interface {
	CreateCourse(ctx context.Context, course *Course) (string, error)
	UpdateCourse(ctx context.Context, course *Course) error
	GetCourseByID(ctx context.Context, id string) (*Course, error)
	ListCourses(ctx context.Context) ([]*Course, error)
	// ReplaceRoster swaps the full roster and recomputes the enrollment count.
	ReplaceRoster(ctx context.Context, courseID string, roster []RosterEntry) error
}
