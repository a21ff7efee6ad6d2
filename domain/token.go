package domain

import "time"

// Service identifies a partner application tokens are issued for.
type Service string

const (
	// ServiceMoodle is the remote learning-management system.
	ServiceMoodle Service = "moodle"
	// ServiceERP is the back-office application.
	ServiceERP Service = "erp"
)

// SSOToken is the current identity token for one (subject, service) pair.
// Exactly one token is retained per pair; issuing a new one overwrites the
// previous value, which is what invalidates it.
type SSOToken struct {
	UserID     string    `bson:"user_id"`
	Service    Service   `bson:"service"`
	TokenValue string    `bson:"token_value"`
	IssuedAt   time.Time `bson:"issued_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

// Expired reports whether the token is past its expiry at the given time.
func (t *SSOToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
