package moodle

// Web-service function names used by the bridge.
const (
	FnGetCategories    = "core_course_get_categories"
	FnGetCourses       = "core_course_get_courses"
	FnGetEnrolledUsers = "core_enrol_get_enrolled_users"
	FnGetUsersByField  = "core_user_get_users_by_field"
	FnCreateUsers      = "core_user_create_users"
	FnUpdateUsers      = "core_user_update_users"
)

// SystemCourseID is the remote's well-known site-level course. It is not a
// real course and every course pass skips it.
const SystemCourseID int64 = 1

// Category is one entry of the flat remote category tree. Parent is 0 for
// top-level categories.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Parent      int64  `json:"parent"`
}

// Course is a remote course record. Dates are unix seconds, zero meaning
// unset.
type Course struct {
	ID         int64  `json:"id"`
	FullName   string `json:"fullname"`
	ShortName  string `json:"shortname"`
	Summary    string `json:"summary"`
	CategoryID int64  `json:"categoryid"`
	StartDate  int64  `json:"startdate"`
	EndDate    int64  `json:"enddate"`
	Visible    int    `json:"visible"`
}

// EnrolledUser is one member of a course's enrollment list.
type EnrolledUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
}

// UserRecord is a remote user as returned by the user lookup functions.
type UserRecord struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
}

// NewUser is the payload for creating a remote user.
type NewUser struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
	Email     string
}

// UserUpdate is a partial update of a remote user. Nil fields are left
// untouched.
type UserUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}
