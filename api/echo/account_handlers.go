package echo

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	berrors "github.com/edulab-dev/lms-bridge/errors"
	"github.com/edulab-dev/lms-bridge/services"
)

type loginRequest struct {
	Email    string `form:"email"    json:"email"`
	Password string `form:"password" json:"password"`
}

type registerRequest struct {
	Email     string `form:"email"      json:"email"`
	Username  string `form:"username"   json:"username"`
	Password  string `form:"password"   json:"password"`
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name"  json:"last_name"`
}

type profileRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// LoginHandler verifies credentials, sets the session cookie, and resumes
// the interrupted navigation when a redirect_to is present.
//
// POST /login
func (a *BridgeAPI) LoginHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "malformed request"})
	}

	session, err := a.accounts.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, errorResponse{Message: "invalid email or password"})
	}

	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// Only same-site paths may resume; "//host" is protocol-relative and
	// would leave the site.
	if redirectTo := param(c, "redirect_to"); strings.HasPrefix(redirectTo, "/") && !strings.HasPrefix(redirectTo, "//") {
		return c.Redirect(http.StatusFound, redirectTo)
	}
	return c.JSON(http.StatusOK, map[string]string{"session_id": session.ID})
}

// LogoutHandler drops the session server-side and expires the cookie.
//
// POST /logout
func (a *BridgeAPI) LogoutHandler(c echo.Context) error {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		_ = a.accounts.Logout(c.Request().Context(), cookie.Value)
	}
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	return c.NoContent(http.StatusNoContent)
}

// RegisterHandler creates a local account. Provisioning into the partner
// systems happens inline and cannot fail the registration.
//
// POST /users
func (a *BridgeAPI) RegisterHandler(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "malformed request"})
	}

	user, err := a.accounts.Register(c.Request().Context(), services.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		var ve *berrors.ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusBadRequest, errorResponse{Message: ve.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "registration failed"})
	}

	return c.JSON(http.StatusCreated, map[string]string{"id": user.ID, "email": user.Email})
}

// UpdateProfileHandler applies a partial profile update for the signed-in
// account and pushes the diff to the partner systems.
//
// PATCH /users/me
func (a *BridgeAPI) UpdateProfileHandler(c echo.Context) error {
	user, ok := a.sessionUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, errorResponse{Message: "sign-in required"})
	}

	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "malformed request"})
	}

	updated, err := a.accounts.UpdateProfile(c.Request().Context(), user.ID, services.ProfileUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		var ve *berrors.ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusBadRequest, errorResponse{Message: ve.Error()})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "profile update failed"})
	}

	return c.JSON(http.StatusOK, map[string]string{"id": updated.ID, "email": updated.Email})
}

// ManualSyncHandler runs a reconciliation sweep on demand. It shares the
// reconciler with the scheduled run and is deliberately not locked against
// it.
//
// POST /admin/sync  (X-Api-Key header)
func (a *BridgeAPI) ManualSyncHandler(c echo.Context) error {
	if c.Request().Header.Get("X-Api-Key") != a.adminKey {
		return c.JSON(http.StatusUnauthorized, errorResponse{Message: "unauthorized"})
	}
	results := a.reconciler.RunAll(c.Request().Context())
	return c.JSON(http.StatusOK, results)
}
