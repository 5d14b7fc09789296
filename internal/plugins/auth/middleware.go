package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Context keys for storing session data in Echo context. Other plugins
// use these keys (via the exported getter functions below) to access
// the authenticated user's information.
const (
	contextKeySession = "auth_session"
	contextKeyUserID  = "auth_user_id"
)

// guestOnlyPaths are exact paths that an authenticated user has no business
// visiting; the guard bounces them to the dashboard.
var guestOnlyPaths = map[string]bool{
	"/":       true,
	"/login":  true,
	"/signup": true,
}

// protectedPrefixes are path prefixes that require an authenticated
// session; anonymous visitors are bounced to the login page.
var protectedPrefixes = []string{
	"/home",
	"/profile",
	"/investments",
	"/transactions",
}

// skippedPrefixes bypass the guard entirely: assets, uploads, and probes.
var skippedPrefixes = []string{
	"/static",
	"/media",
	"/healthz",
	"/favicon.ico",
}

// SessionGuard returns the global route guard. It resolves the session
// cookie on every request (transparently rotating an expired access token
// through the refresh token), injects the session into the request context,
// and enforces the public/protected split:
//
//   - authenticated visitors on /, /login, or /signup → 303 to /home
//   - anonymous visitors under a protected prefix → 303 to /login
//   - everything else passes through, session attached when present
func SessionGuard(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, prefix := range skippedPrefixes {
				if strings.HasPrefix(path, prefix) {
					return next(c)
				}
			}

			session := resolveSession(c, service)
			if session != nil {
				c.Set(contextKeySession, session)
				c.Set(contextKeyUserID, session.UserID)
			}

			if session != nil && guestOnlyPaths[path] {
				return c.Redirect(http.StatusSeeOther, "/home")
			}

			if session == nil {
				for _, prefix := range protectedPrefixes {
					if strings.HasPrefix(path, prefix) {
						return c.Redirect(http.StatusSeeOther, "/login")
					}
				}
			}

			return next(c)
		}
	}
}

// resolveSession turns the session cookies into a Session, or nil for an
// anonymous request. A dead access token with a live refresh token rotates
// into a fresh pair without the user noticing; dead cookies are cleared so
// they aren't retried on every request.
func resolveSession(c echo.Context, service AuthService) *Session {
	ctx := c.Request().Context()

	if token := GetSessionToken(c); token != "" {
		if session, err := service.ValidateAccess(ctx, token); err == nil {
			return session
		}
	}

	refresh := GetRefreshToken(c)
	if refresh == "" {
		if GetSessionToken(c) != "" {
			ClearSessionCookies(c)
		}
		return nil
	}

	pair, session, err := service.Refresh(ctx, refresh)
	if err != nil {
		ClearSessionCookies(c)
		return nil
	}

	SetSessionCookies(c, pair)
	return session
}

// --- Exported getters for other plugins ---

// GetSession retrieves the authenticated session from the Echo context.
// ok is false for anonymous requests.
func GetSession(c echo.Context) (*Session, bool) {
	session, ok := c.Get(contextKeySession).(*Session)
	return session, ok
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string for anonymous requests.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}
