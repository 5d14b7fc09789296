package onetap

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradingsim/tradingsim/internal/plugins/auth"
)

// nonceCookieName carries the nonce ID between the page render and the
// credential exchange.
const nonceCookieName = "tradingsim_nonce"

// Handler wires the One Tap flow into HTTP: it decorates auth pages with
// widget data and handles the credential POST.
type Handler struct {
	service  OneTapService
	sessions auth.AuthService
	clientID string
}

// NewHandler creates the One Tap handler.
func NewHandler(service OneTapService, sessions auth.AuthService, clientID string) *Handler {
	return &Handler{service: service, sessions: sessions, clientID: clientID}
}

// Prepare implements auth.OneTapWidget: it issues a fresh nonce for the
// page render and parks the nonce ID in a cookie. A failure just means the
// page renders without the widget.
func (h *Handler) Prepare(c echo.Context) (auth.OneTapData, bool) {
	nonce, err := h.service.IssueNonce(c.Request().Context())
	if err != nil {
		slog.Warn("failed to issue one tap nonce", slog.Any("error", err))
		return auth.OneTapData{}, false
	}

	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     nonceCookieName,
		Value:    nonce.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(nonceTTL),
	})

	return auth.OneTapData{ClientID: h.clientID, Nonce: nonce.Hashed}, true
}

// Exchange handles POST /auth/google: the page script posts the credential
// it received from Google, and a verified identity becomes a session. The
// response is JSON because the caller is fetch(), not a form.
func (h *Handler) Exchange(c echo.Context) error {
	var req ExchangeRequest
	if err := c.Bind(&req); err != nil || req.Credential == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing credential"})
	}

	nonceID := ""
	if cookie, err := c.Cookie(nonceCookieName); err == nil {
		nonceID = cookie.Value
	}
	// The nonce cookie is one-shot regardless of outcome.
	c.SetCookie(&http.Cookie{Name: nonceCookieName, Value: "", Path: "/", HttpOnly: true, MaxAge: -1})

	ctx := c.Request().Context()
	user, err := h.service.Exchange(ctx, req.Credential, nonceID)
	if err != nil {
		// The widget fails silently: the page script logs and the visitor
		// keeps the normal login form.
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "verification failed"})
	}

	pair, err := h.sessions.CreateSessionFor(ctx, user)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not establish session"})
	}
	auth.SetSessionCookies(c, pair)

	return c.JSON(http.StatusOK, map[string]string{"redirect": "/home"})
}
