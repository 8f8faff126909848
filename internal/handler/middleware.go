package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/jobtracker/internal/domain"
	"github.com/sumire/jobtracker/internal/service"
)

const (
	contextKeySession = "session"

	// SessionCookie carries the signed session token.
	SessionCookie = "jobtracker_session"
)

// RequestLogger logs each HTTP request with structured fields.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is logged.
				c.Error(err)
			}

			slog.InfoContext(c.Request().Context(), "http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)

			return nil
		}
	}
}

// RequireSession resumes the session named by the cookie. Pages redirect to
// the login form when there is none; API routes answer 401.
func RequireSession(guard *service.SessionGuard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := guard.Resume(c.Request().Context(), sessionToken(c))
			if err != nil {
				if !errors.Is(err, domain.ErrUnauthorized) {
					return err
				}
				if isAPI(c) {
					return domain.ErrUnauthorized
				}
				return c.Redirect(http.StatusSeeOther, "/login")
			}

			SetSession(c, sess)
			return next(c)
		}
	}
}

// SetSession stores sess on the request context.
func SetSession(c echo.Context, sess *service.Session) {
	c.Set(contextKeySession, sess)
}

// SessionFrom returns the session RequireSession resumed.
func SessionFrom(c echo.Context) (*service.Session, bool) {
	sess, ok := c.Get(contextKeySession).(*service.Session)
	return sess, ok && sess != nil
}

func sessionToken(c echo.Context) string {
	cookie, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func isAPI(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}
