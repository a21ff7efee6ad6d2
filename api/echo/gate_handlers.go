package echo

import (
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/edulab-dev/lms-bridge/domain"
)

// EnrollHandler gates navigation to an arbitrary target URL behind local
// sign-in and, when the target lives on the remote learning system, behind
// an SSO handoff. Navigation never hard-fails: whatever goes wrong, the
// visitor ends up redirected somewhere sensible.
//
// GET /enroll?enroll_url=<base64url of absolute target URL>
func (a *BridgeAPI) EnrollHandler(c echo.Context) error {
	target := a.decodeTarget(c.QueryParam("enroll_url"))
	if target == nil {
		return c.Redirect(http.StatusFound, "/")
	}

	user, ok := a.sessionUser(c)
	if !ok {
		return a.redirectToSignIn(c)
	}

	if target.Host != a.moodleURL.Host {
		return c.Redirect(http.StatusFound, target.String())
	}
	return a.handoff(c, user.ID, target)
}

// MoodleShortcutHandler is the "go to LMS home" shortcut: the same
// authentication gate, always targeting the remote system's root.
//
// GET /moodle
func (a *BridgeAPI) MoodleShortcutHandler(c echo.Context) error {
	user, ok := a.sessionUser(c)
	if !ok {
		return a.redirectToSignIn(c)
	}

	root := *a.moodleURL
	root.Path = "/"
	return a.handoff(c, user.ID, &root)
}

// handoff obtains a current token (issuing if absent or expired) and sends
// the visitor to the remote acceptance endpoint with the target's
// path+query preserved. When no token can be obtained the visitor is
// redirected straight to the target instead.
func (a *BridgeAPI) handoff(c echo.Context, userID string, target *url.URL) error {
	token, err := a.tokens.EnsureToken(c.Request().Context(), userID, domain.ServiceMoodle)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).
			Msg("token issuance failed, degrading to direct redirect")
		return c.Redirect(http.StatusFound, target.String())
	}

	redirect := target.Path
	if target.RawQuery != "" {
		redirect += "?" + target.RawQuery
	}

	accept := *a.moodleURL
	accept.Path = ssoAcceptPath
	query := url.Values{}
	query.Set("token", token.TokenValue)
	query.Set("redirect", redirect)
	accept.RawQuery = query.Encode()

	return c.Redirect(http.StatusFound, accept.String())
}

// decodeTarget parses the base64url-encoded target. Anything undecodable
// or non-absolute yields nil and the caller falls back to the site root.
func (a *BridgeAPI) decodeTarget(encoded string) *url.URL {
	if encoded == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		// Tolerate padded input from older callers.
		raw, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return nil
		}
	}
	target, err := url.Parse(string(raw))
	if err != nil || !target.IsAbs() {
		return nil
	}
	return target
}

// sessionUser resolves the session cookie to an account.
func (a *BridgeAPI) sessionUser(c echo.Context) (*domain.User, bool) {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	user, err := a.accounts.UserForSession(c.Request().Context(), cookie.Value)
	if err != nil {
		return nil, false
	}
	return user, true
}

// redirectToSignIn sends the visitor to the local sign-in page with a
// return path back to the gate URL they came from, so the flow resumes
// after authentication.
func (a *BridgeAPI) redirectToSignIn(c echo.Context) error {
	returnTo := c.Request().URL.RequestURI()
	return c.Redirect(http.StatusFound, "/login?redirect_to="+url.QueryEscape(returnTo))
}
