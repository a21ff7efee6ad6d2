package domain

import (
	"strings"
	"time"
)

// UserStatus defines the possible statuses of a local account.
type UserStatus string

const (
	UserStatusActive UserStatus = "ACTIVE"
	UserStatusLocked UserStatus = "LOCKED"
)

// User represents a local account on the content site.
type User struct {
	ID           string     `bson:"_id,omitempty"`
	Email        string     `bson:"email,unique"`
	Username     string     `bson:"username"`
	PasswordHash string     `bson:"password_hash"`
	Status       UserStatus `bson:"status"`
	FirstName    string     `bson:"first_name,omitempty"`
	LastName     string     `bson:"last_name,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
	LastLoginAt  *time.Time `bson:"last_login_at,omitempty"`
}

// DisplayName returns "First Last", falling back to the username when
// neither name field is set.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// SubjectIdentity is the identity a successful token verification yields.
type SubjectIdentity struct {
	UserID string `json:"subjectId"`
	Email  string `json:"email"`
	Login  string `json:"login"`
	Name   string `json:"name"`
}
