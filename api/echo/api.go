// Package echo exposes the bridge over HTTP: the identity gate that hands a
// signed-in visitor off to the remote learning system, the token
// verification endpoint partner applications call back into, the account
// lifecycle endpoints, and the manual sync trigger.
package echo

import (
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/edulab-dev/lms-bridge/services"
)

const sessionCookieName = "bridge_session"

// ssoAcceptPath is the remote system's SSO-acceptance endpoint, relative to
// its site root. The remote side decodes the token and calls back into
// /sso/verify before establishing its own session.
const ssoAcceptPath = "/local/ssobridge/login.php"

// BridgeAPI struct to hold dependencies.
type BridgeAPI struct {
	accounts   *services.AccountService
	tokens     *services.TokenService
	reconciler *services.Reconciler
	moodleURL  *url.URL
	adminKey   string
}

// NewBridgeAPI initializes the bridge HTTP API. moodleBaseURL must be the
// remote site root; adminKey guards the manual sync trigger.
func NewBridgeAPI(
	accounts *services.AccountService,
	tokens *services.TokenService,
	reconciler *services.Reconciler,
	moodleBaseURL string,
	adminKey string,
) (*BridgeAPI, error) {
	parsed, err := url.Parse(moodleBaseURL)
	if err != nil {
		return nil, err
	}
	return &BridgeAPI{
		accounts:   accounts,
		tokens:     tokens,
		reconciler: reconciler,
		moodleURL:  parsed,
		adminKey:   adminKey,
	}, nil
}

// RegisterRoutes registers the bridge routes.
func (a *BridgeAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/enroll", a.EnrollHandler)
	e.GET("/moodle", a.MoodleShortcutHandler)

	e.GET("/sso/verify", a.VerifySSOTokenHandler)
	e.POST("/sso/verify", a.VerifySSOTokenHandler)

	e.POST("/login", a.LoginHandler)
	e.POST("/logout", a.LogoutHandler)
	e.POST("/users", a.RegisterHandler)
	e.PATCH("/users/me", a.UpdateProfileHandler)

	e.POST("/admin/sync", a.ManualSyncHandler)
}
