// Package downstream pushes flat course and user records to the back-office
// consumer. Each push is one POST with a static bearer token; calls are
// independent and a failure only affects that one record.
package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/edulab-dev/lms-bridge/errors"
)

const defaultTimeout = 10 * time.Second

// CourseRecord is the flat shape the consumer expects per course.
type CourseRecord struct {
	LocalID     string  `json:"localId"`
	RemoteID    int64   `json:"remoteId"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	StartDate   string  `json:"startDate,omitempty"`
	EndDate     string  `json:"endDate,omitempty"`
	Price       float64 `json:"price"`
	Capacity    int     `json:"capacity"`
	Enrollment  int     `json:"enrollment"`
	Status      string  `json:"status"`
}

// UserRecord mirrors a local account into the back-office system.
type UserRecord struct {
	LocalID   string `json:"localId"`
	Email     string `json:"email"`
	Login     string `json:"login"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type pushResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Client talks to the downstream push endpoint.
type Client struct {
	baseURL string
	bearer  string
	http    *http.Client
}

func NewClient(baseURL, bearer string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		bearer:  bearer,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// PushCourse upserts one course record.
func (c *Client) PushCourse(ctx context.Context, record *CourseRecord) error {
	return c.post(ctx, "/api/courses", record)
}

// PushUser upserts one user record.
func (c *Client) PushUser(ctx context.Context, record *UserRecord) error {
	return c.post(ctx, "/api/users", record)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewValidation("payload", err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.NewTransport(path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.NewTransport(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errors.NewTransport(path, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var pr pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return errors.NewFault(path, fmt.Sprintf("undecodable push response: %v", err))
	}
	if !pr.Success {
		return errors.NewFault(path, pr.Message)
	}
	return nil
}
