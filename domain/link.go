package domain

import "time"

// EntityType enumerates the entity kinds tracked by external links.
type EntityType string

const (
	EntityCategory EntityType = "category"
	EntityCourse   EntityType = "course"
	EntityUser     EntityType = "user"
)

// ExternalLink records that a local entity corresponds to a remote one.
// At most one link exists per (entity_type, remote_id); it is the sole
// idempotency key for reconciliation and is never deleted automatically.
type ExternalLink struct {
	EntityType EntityType `bson:"entity_type"`
	RemoteID   int64      `bson:"remote_id"`
	LocalID    string     `bson:"local_id"`
	CreatedAt  time.Time  `bson:"created_at"`
}
