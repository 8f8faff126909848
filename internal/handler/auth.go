package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/jobtracker/internal/service"
)

// AuthHandler handles the welcome, login, register and logout pages.
type AuthHandler struct {
	guard        *service.SessionGuard
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(guard *service.SessionGuard, secureCookie bool) *AuthHandler {
	return &AuthHandler{guard: guard, secureCookie: secureCookie}
}

// Welcome renders the landing page.
func (h *AuthHandler) Welcome(c echo.Context) error {
	h.resume(c)
	return c.Render(http.StatusOK, "welcome", newView(c))
}

// ShowLogin renders the login form, or sends a logged-in user home.
func (h *AuthHandler) ShowLogin(c echo.Context) error {
	if h.resume(c) {
		return c.Redirect(http.StatusSeeOther, "/home")
	}
	return c.Render(http.StatusOK, "login", newView(c))
}

// Login starts a session from the submitted credentials.
func (h *AuthHandler) Login(c echo.Context) error {
	username := c.FormValue("username")
	sess, err := h.guard.Login(c.Request().Context(), username, c.FormValue("password"))
	if err != nil {
		return h.formError(c, "login", username, err)
	}

	h.setCookie(c, sess)
	return c.Redirect(http.StatusSeeOther, "/home")
}

// ShowRegister renders the registration form.
func (h *AuthHandler) ShowRegister(c echo.Context) error {
	if h.resume(c) {
		return c.Redirect(http.StatusSeeOther, "/home")
	}
	return c.Render(http.StatusOK, "register", newView(c))
}

// Register creates the account and logs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	username := c.FormValue("username")
	sess, err := h.guard.Register(c.Request().Context(), username, c.FormValue("password"))
	if err != nil {
		return h.formError(c, "register", username, err)
	}

	slog.InfoContext(c.Request().Context(), "user registered", "username", sess.Username)
	h.setCookie(c, sess)
	return c.Redirect(http.StatusSeeOther, "/home")
}

// Logout forgets the session and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.guard.Logout(c.Request().Context(), sessionToken(c)); err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
	return c.Redirect(http.StatusSeeOther, "/")
}

// formError re-renders a credentials form with the failure shown inline.
func (h *AuthHandler) formError(c echo.Context, page, username string, err error) error {
	status, apiErr := mapError(err)
	if status >= http.StatusInternalServerError {
		slog.WarnContext(c.Request().Context(), "credentials check failed", "page", page, "error", err)
	}

	v := newView(c)
	v.Login = username
	v.Error = apiErr.Message
	return c.Render(status, page, v)
}

func (h *AuthHandler) setCookie(c echo.Context, sess *service.Session) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
}

// resume attaches the cookie's session to c if there is one.
func (h *AuthHandler) resume(c echo.Context) bool {
	sess, err := h.guard.Resume(c.Request().Context(), sessionToken(c))
	if err != nil {
		return false
	}
	SetSession(c, sess)
	return true
}
