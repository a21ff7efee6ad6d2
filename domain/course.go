package domain

import "time"

// Term is a local course category. Parent linkage is resolved in a second
// reconciliation pass, so ParentID may stay empty for a run or two after the
// term itself exists.
type Term struct {
	ID          string    `bson:"_id,omitempty"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	ParentID    string    `bson:"parent_id,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// RosterEntry is one enrolled user attached to a course, keyed by the
// remote user id. The whole roster is replaced per course on every run.
type RosterEntry struct {
	RemoteUserID int64  `bson:"remote_user_id"`
	Username     string `bson:"username"`
	FirstName    string `bson:"first_name"`
	LastName     string `bson:"last_name"`
	Email        string `bson:"email"`
}

// CourseStatus mirrors the remote visibility flag.
type CourseStatus string

const (
	CourseStatusVisible CourseStatus = "visible"
	CourseStatusHidden  CourseStatus = "hidden"
)

// Course is the local record of a remote course.
type Course struct {
	ID              string        `bson:"_id,omitempty"`
	Name            string        `bson:"name"`
	Summary         string        `bson:"summary,omitempty"`
	TermID          string        `bson:"term_id,omitempty"`
	StartDate       *time.Time    `bson:"start_date,omitempty"`
	EndDate         *time.Time    `bson:"end_date,omitempty"`
	RemoteURL       string        `bson:"remote_url,omitempty"`
	Price           float64       `bson:"price,omitempty"`
	Capacity        int           `bson:"capacity,omitempty"`
	Status          CourseStatus  `bson:"status"`
	EnrollmentCount int           `bson:"enrollment_count"`
	Roster          []RosterEntry `bson:"roster,omitempty"`
	CreatedAt       time.Time     `bson:"created_at"`
	UpdatedAt       time.Time     `bson:"updated_at"`
}
