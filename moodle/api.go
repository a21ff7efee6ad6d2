package moodle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/edulab-dev/lms-bridge/errors"
)

// GetCategories fetches the flat category tree.
func (c *Client) GetCategories(ctx context.Context) ([]Category, error) {
	raw, err := c.Call(ctx, FnGetCategories, url.Values{})
	if err != nil {
		return nil, err
	}
	var cats []Category
	if err := json.Unmarshal(raw, &cats); err != nil {
		return nil, errors.NewFault(FnGetCategories, fmt.Sprintf("undecodable category list: %v", err))
	}
	return cats, nil
}

// GetCourses fetches all remote courses, including the system course; the
// caller decides what to skip.
func (c *Client) GetCourses(ctx context.Context) ([]Course, error) {
	raw, err := c.Call(ctx, FnGetCourses, url.Values{})
	if err != nil {
		return nil, err
	}
	var courses []Course
	if err := json.Unmarshal(raw, &courses); err != nil {
		return nil, errors.NewFault(FnGetCourses, fmt.Sprintf("undecodable course list: %v", err))
	}
	return courses, nil
}

// GetCourseByID fetches a single course, or ErrNotFound when the remote has
// no course with that id.
func (c *Client) GetCourseByID(ctx context.Context, id int64) (*Course, error) {
	params := url.Values{}
	params.Set("options[ids][0]", strconv.FormatInt(id, 10))
	raw, err := c.Call(ctx, FnGetCourses, params)
	if err != nil {
		return nil, err
	}
	var courses []Course
	if err := json.Unmarshal(raw, &courses); err != nil {
		return nil, errors.NewFault(FnGetCourses, fmt.Sprintf("undecodable course lookup: %v", err))
	}
	if len(courses) == 0 {
		return nil, errors.ErrNotFound
	}
	return &courses[0], nil
}

// GetEnrolledUsers fetches the enrollment list of one course.
func (c *Client) GetEnrolledUsers(ctx context.Context, courseID int64) ([]EnrolledUser, error) {
	params := url.Values{}
	params.Set("courseid", strconv.FormatInt(courseID, 10))
	raw, err := c.Call(ctx, FnGetEnrolledUsers, params)
	if err != nil {
		return nil, err
	}
	var users []EnrolledUser
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, errors.NewFault(FnGetEnrolledUsers, fmt.Sprintf("undecodable enrollment list: %v", err))
	}
	return users, nil
}

// GetUserByEmail looks a remote user up by email. Returns ErrNotFound when
// no account matches.
func (c *Client) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	params := url.Values{}
	params.Set("field", "email")
	params.Set("values[0]", email)
	raw, err := c.Call(ctx, FnGetUsersByField, params)
	if err != nil {
		return nil, err
	}
	var users []UserRecord
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, errors.NewFault(FnGetUsersByField, fmt.Sprintf("undecodable user lookup: %v", err))
	}
	if len(users) == 0 {
		return nil, errors.ErrNotFound
	}
	return &users[0], nil
}

// CreateUser creates a remote account and returns its id.
func (c *Client) CreateUser(ctx context.Context, u NewUser) (int64, error) {
	params := url.Values{}
	params.Set("users[0][username]", u.Username)
	params.Set("users[0][password]", u.Password)
	params.Set("users[0][firstname]", u.FirstName)
	params.Set("users[0][lastname]", u.LastName)
	params.Set("users[0][email]", u.Email)
	raw, err := c.Call(ctx, FnCreateUsers, params)
	if err != nil {
		return 0, err
	}
	var created []struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(raw, &created); err != nil || len(created) == 0 {
		return 0, errors.NewFault(FnCreateUsers, "user creation returned no id")
	}
	return created[0].ID, nil
}

// UpdateUser pushes a partial update to a remote account.
func (c *Client) UpdateUser(ctx context.Context, remoteID int64, u UserUpdate) error {
	params := url.Values{}
	params.Set("users[0][id]", strconv.FormatInt(remoteID, 10))
	if u.FirstName != nil {
		params.Set("users[0][firstname]", *u.FirstName)
	}
	if u.LastName != nil {
		params.Set("users[0][lastname]", *u.LastName)
	}
	if u.Email != nil {
		params.Set("users[0][email]", *u.Email)
	}
	_, err := c.Call(ctx, FnUpdateUsers, params)
	return err
}

// CourseViewURL is the canonical remote URL for viewing a course.
func (c *Client) CourseViewURL(remoteID int64) string {
	return fmt.Sprintf("%s/course/view.php?id=%d", c.baseURL, remoteID)
}
