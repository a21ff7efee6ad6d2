// Package moodle wraps the Moodle web-service REST API: function name plus
// form-encoded params in, JSON or a fault envelope out. The client performs
// exactly one POST per call with a bounded timeout and never retries.
package moodle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edulab-dev/lms-bridge/errors"
)

const (
	restPath       = "/webservice/rest/server.php"
	defaultTimeout = 30 * time.Second

	// maxParamDump bounds the parameter dump written to logs.
	maxParamDump = 200
)

// faultEnvelope is the application-level error shape Moodle returns with a
// 200 status.
type faultEnvelope struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
}

// Client is a thin, retry-free caller of the Moodle RPC API.
type Client struct {
	baseURL string
	wsToken string
	http    *http.Client
}

// NewClient creates a Client for the given site. baseURL is the site root
// without the web-service path.
func NewClient(baseURL, wsToken string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		wsToken: wsToken,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// BaseURL returns the remote site root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Call invokes a single web-service function. The auth token and response
// format flag are always appended. Outcomes: transport failure (connection
// error or non-2xx), fault envelope in the body, or the decoded JSON value.
func (c *Client) Call(ctx context.Context, function string, params url.Values) (json.RawMessage, error) {
	form := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			form.Add(k, v)
		}
	}
	form.Set("wstoken", c.wsToken)
	form.Set("wsfunction", function)
	form.Set("moodlewsrestformat", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+restPath, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, errors.NewTransport(function, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Str("function", function).Str("params", redactParams(params)).
			Err(err).Msg("moodle call failed in transport")
		return nil, errors.NewTransport(function, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().Str("function", function).Str("params", redactParams(params)).
			Int("status", resp.StatusCode).Msg("moodle call returned non-2xx status")
		return nil, errors.NewTransport(function, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransport(function, err)
	}

	var fault faultEnvelope
	if err := json.Unmarshal(body, &fault); err == nil && fault.Exception != "" {
		log.Warn().Str("function", function).Str("params", redactParams(params)).
			Str("exception", fault.Exception).Str("message", fault.Message).
			Msg("moodle call returned fault envelope")
		return nil, errors.NewFault(function, fault.Message)
	}

	log.Debug().Str("function", function).Str("params", redactParams(params)).
		Msg("moodle call succeeded")
	return json.RawMessage(body), nil
}

// redactParams renders params for logging, hiding credential material and
// truncating the dump. The wstoken never appears here because it is added
// after logging input is captured.
func redactParams(params url.Values) string {
	var sb strings.Builder
	for k, vs := range params {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		if isSecretParam(k) {
			sb.WriteString("[redacted]")
			continue
		}
		sb.WriteString(strings.Join(vs, ","))
	}
	dump := sb.String()
	if len(dump) > maxParamDump {
		dump = dump[:maxParamDump] + "..."
	}
	return dump
}

func isSecretParam(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") || strings.Contains(k, "token") || strings.Contains(k, "secret")
}
