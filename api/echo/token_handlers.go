package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edulab-dev/lms-bridge/domain"
	berrors "github.com/edulab-dev/lms-bridge/errors"
)

// verifyResponse is the envelope the partner application receives.
type verifyResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type verifyFailure struct {
	Message string `json:"message"`
}

// VerifySSOTokenHandler is called back by the partner application while it
// processes an SSO handoff. The shared API key is checked before the token
// is inspected; without it the response is Unauthorized regardless of
// token validity.
//
// GET/POST /sso/verify?action=verify_sso_token&token=<opaque>&service=<name>&api_key=<shared key>
func (a *BridgeAPI) VerifySSOTokenHandler(c echo.Context) error {
	if param(c, "action") != "verify_sso_token" {
		return c.JSON(http.StatusBadRequest, verifyResponse{
			Success: false, Data: verifyFailure{Message: "unknown action"},
		})
	}

	service := domain.Service(param(c, "service"))
	if service == "" {
		service = domain.ServiceMoodle
	}

	identity, err := a.tokens.VerifyForPartner(
		c.Request().Context(), param(c, "api_key"), param(c, "token"), service)
	switch {
	case errors.Is(err, berrors.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, verifyResponse{
			Success: false, Data: verifyFailure{Message: "unauthorized"},
		})
	case err != nil:
		return c.JSON(http.StatusOK, verifyResponse{
			Success: false, Data: verifyFailure{Message: "invalid or expired token"},
		})
	}

	return c.JSON(http.StatusOK, verifyResponse{Success: true, Data: identity})
}

// param reads a request value from the query string or the form body, so
// the endpoint serves both GET and POST callers.
func param(c echo.Context, name string) string {
	if v := c.QueryParam(name); v != "" {
		return v
	}
	return c.FormValue(name)
}
