package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradingsim/tradingsim/internal/apperror"
	"github.com/tradingsim/tradingsim/internal/config"
	"github.com/tradingsim/tradingsim/internal/middleware"
)

// Cookie names for the two halves of a session. Both are HttpOnly -- the
// browser carries them, scripts never see them.
const (
	sessionCookieName = "tradingsim_session"
	refreshCookieName = "tradingsim_refresh"
)

// OneTapData carries what the login and signup pages need to render the
// Google sign-in widget: the OAuth client ID and a fresh nonce bound to
// this page load.
type OneTapData struct {
	ClientID string
	Nonce    string
}

// OneTapWidget prepares the Google sign-in widget for a page render. The
// onetap plugin implements this; a nil widget (or ok=false) means the
// widget is simply omitted from the page.
type OneTapWidget interface {
	Prepare(c echo.Context) (OneTapData, bool)
}

// Handler handles HTTP requests for authentication: login, demo login,
// signup, email confirmation, password reset, and logout. Handlers are
// thin: they bind the request, call the service, and render the response.
// No business logic lives here.
type Handler struct {
	service AuthService
	cfg     *config.Config
	oneTap  OneTapWidget
}

// NewHandler creates a new auth handler. oneTap may be nil when Google
// sign-in is not configured.
func NewHandler(service AuthService, cfg *config.Config, oneTap OneTapWidget) *Handler {
	return &Handler{service: service, cfg: cfg, oneTap: oneTap}
}

// oneTapData resolves the widget data for a page render.
func (h *Handler) oneTapData(c echo.Context) (OneTapData, bool) {
	if h.oneTap == nil {
		return OneTapData{}, false
	}
	return h.oneTap.Prepare(c)
}

// LoginForm renders the login page (GET /login). The session guard already
// bounced authenticated visitors to /home before this runs.
func (h *Handler) LoginForm(c echo.Context) error {
	csrfToken := middleware.GetCSRFToken(c)

	// Success banners after password reset or email confirmation.
	var successMsg string
	switch {
	case c.QueryParam("reset") == "success":
		successMsg = "Your password has been updated. You can now sign in."
	case c.QueryParam("confirmed") == "1":
		successMsg = "Your email is confirmed. You can now sign in."
	}

	oneTap, hasOneTap := h.oneTapData(c)
	return middleware.Render(c, http.StatusOK, LoginPage(LoginPageData{
		CSRFToken: csrfToken,
		Success:   successMsg,
		OneTap:    oneTap,
		HasOneTap: hasOneTap,
	}))
}

// Login processes the login form submission (POST /login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	return h.login(c, LoginInput{Email: req.Email, Password: req.Password}, req.Email)
}

// DemoLogin signs in the shared demo account (POST /login/demo). The
// credentials are fixed server-side; the form carries nothing but the CSRF
// token.
func (h *Handler) DemoLogin(c echo.Context) error {
	input := LoginInput{
		Email:    h.cfg.Demo.Email,
		Password: h.cfg.Demo.Password,
	}
	return h.login(c, input, "")
}

// login runs the shared authenticate-and-establish-session path for the
// password and demo login forms.
func (h *Handler) login(c echo.Context, input LoginInput, formEmail string) error {
	pair, _, err := h.service.Login(c.Request().Context(), input)
	if err != nil {
		// Re-render the login form with the error message.
		oneTap, hasOneTap := h.oneTapData(c)
		return middleware.Render(c, http.StatusOK, LoginPage(LoginPageData{
			CSRFToken: middleware.GetCSRFToken(c),
			Email:     formEmail,
			Error:     apperror.SafeMessage(err),
			OneTap:    oneTap,
			HasOneTap: hasOneTap,
		}))
	}

	SetSessionCookies(c, pair)
	return c.Redirect(http.StatusSeeOther, "/home")
}

// SignupForm renders the signup page (GET /signup).
func (h *Handler) SignupForm(c echo.Context) error {
	csrfToken := middleware.GetCSRFToken(c)
	oneTap, hasOneTap := h.oneTapData(c)
	return middleware.Render(c, http.StatusOK, SignupPage(SignupPageData{
		CSRFToken: csrfToken,
		OneTap:    oneTap,
		HasOneTap: hasOneTap,
	}))
}

// Signup processes the signup form submission (POST /signup). On success
// the user is told to check their inbox -- no session is established until
// the address is confirmed.
func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	renderErr := func(msg string) error {
		oneTap, hasOneTap := h.oneTapData(c)
		return middleware.Render(c, http.StatusOK, SignupPage(SignupPageData{
			CSRFToken: middleware.GetCSRFToken(c),
			Form:      &req,
			Error:     msg,
			OneTap:    oneTap,
			HasOneTap: hasOneTap,
		}))
	}

	if msg := validateSignupRequest(&req); msg != "" {
		return renderErr(msg)
	}

	input := RegisterInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	}

	user, err := h.service.Register(c.Request().Context(), input, h.cfg.ResolveBaseURL(requestOrigin(c)))
	if err != nil {
		return renderErr(apperror.SafeMessage(err))
	}

	return middleware.Render(c, http.StatusOK, SignupSentPage(user.Email))
}

// Confirm consumes an email confirmation code (GET /confirm?code=...).
// Success lands on the login page with a banner; a bad link renders an
// explanation with a delayed redirect back to signup.
func (h *Handler) Confirm(c echo.Context) error {
	code := c.QueryParam("code")
	if err := h.service.ConfirmEmail(c.Request().Context(), code); err != nil {
		return middleware.Render(c, http.StatusOK,
			DelayedRedirectPage("Link expired", apperror.SafeMessage(err), "/signup", 3))
	}
	return c.Redirect(http.StatusSeeOther, "/login?confirmed=1")
}

// --- Password Reset ---

// ForgotPasswordForm renders the forgot password page (GET /forgot-password).
func (h *Handler) ForgotPasswordForm(c echo.Context) error {
	csrfToken := middleware.GetCSRFToken(c)
	return middleware.Render(c, http.StatusOK, ForgotPasswordPage(csrfToken, "", ""))
}

// ForgotPassword processes the forgot password form (POST /forgot-password).
// The sent page renders whether or not the address is registered; only a
// failure of the email delivery itself shows an error.
func (h *Handler) ForgotPassword(c echo.Context) error {
	email := c.FormValue("email")
	csrfToken := middleware.GetCSRFToken(c)
	if email == "" {
		return middleware.Render(c, http.StatusOK, ForgotPasswordPage(csrfToken, "", "email is required"))
	}

	if err := h.service.InitiatePasswordReset(c.Request().Context(), email, h.cfg.ResolveBaseURL(requestOrigin(c))); err != nil {
		return middleware.Render(c, http.StatusOK,
			ForgotPasswordPage(csrfToken, email, "could not send the reset email, please try again"))
	}

	return middleware.Render(c, http.StatusOK, ForgotPasswordSentPage(email))
}

// ResetPasswordForm handles the reset link (GET /reset-password?code=...).
// A valid code is exchanged for a recovery session and the new-password
// form renders. A missing or bad code shows an explanation and sends the
// visitor back to /forgot-password after a short delay.
func (h *Handler) ResetPasswordForm(c echo.Context) error {
	code := c.QueryParam("code")
	if code != "" {
		pair, user, err := h.service.ExchangeResetCode(c.Request().Context(), code)
		if err != nil {
			return middleware.Render(c, http.StatusOK,
				DelayedRedirectPage("Link expired", apperror.SafeMessage(err), "/forgot-password", 3))
		}
		SetSessionCookies(c, pair)
		return middleware.Render(c, http.StatusOK,
			ResetPasswordPage(middleware.GetCSRFToken(c), user.Email, ""))
	}

	// No code: the form still works if a recovery session is already
	// established (e.g. the user reloaded the page after the exchange).
	if session, ok := GetSession(c); ok {
		return middleware.Render(c, http.StatusOK,
			ResetPasswordPage(middleware.GetCSRFToken(c), session.Email, ""))
	}
	return middleware.Render(c, http.StatusOK,
		DelayedRedirectPage("Link expired", "this reset link is invalid or has expired", "/forgot-password", 3))
}

// ResetPassword processes the new password form (POST /reset-password).
// The caller must hold a recovery session from the code exchange. On
// success the session is revoked and the visitor lands on /login after a
// short confirmation screen.
func (h *Handler) ResetPassword(c echo.Context) error {
	session, ok := GetSession(c)
	if !ok {
		return middleware.Render(c, http.StatusOK,
			DelayedRedirectPage("Link expired", "this reset link is invalid or has expired", "/forgot-password", 3))
	}

	password := c.FormValue("password")
	confirm := c.FormValue("confirm")
	csrfToken := middleware.GetCSRFToken(c)

	if password != confirm {
		return middleware.Render(c, http.StatusOK,
			ResetPasswordPage(csrfToken, session.Email, "passwords do not match"))
	}

	if err := h.service.UpdatePassword(c.Request().Context(), session.UserID, password); err != nil {
		return middleware.Render(c, http.StatusOK,
			ResetPasswordPage(csrfToken, session.Email, apperror.SafeMessage(err)))
	}

	// The recovery session has served its purpose.
	_ = h.service.SignOut(c.Request().Context(), GetSessionToken(c), GetRefreshToken(c))
	ClearSessionCookies(c)

	return middleware.Render(c, http.StatusOK,
		DelayedRedirectPage("Password updated", "Your password has been updated. Taking you to sign in.", "/login?reset=success", 2))
}

// Logout destroys the session and clears both cookies (POST /logout).
// Safe to call with no session at all.
func (h *Handler) Logout(c echo.Context) error {
	_ = h.service.SignOut(c.Request().Context(), GetSessionToken(c), GetRefreshToken(c))
	ClearSessionCookies(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

// --- Cookie helpers ---

// GetSessionToken reads the access token from the session cookie.
func GetSessionToken(c echo.Context) string {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// GetRefreshToken reads the refresh token from its cookie.
func GetRefreshToken(c echo.Context) string {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// SetSessionCookies writes both halves of a token pair as HttpOnly cookies.
// Secure is set when the request arrived over TLS (directly or via the
// proxy's X-Forwarded-Proto). A nil pair writes nothing.
func SetSessionCookies(c echo.Context, pair *TokenPair) {
	if pair == nil {
		return
	}
	req := c.Request()
	secure := req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https"

	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(pair.AccessExpiresAt).Seconds()),
	})
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(pair.RefreshExpiresAt).Seconds()),
	})
}

// ClearSessionCookies removes both session cookies.
func ClearSessionCookies(c echo.Context) {
	for _, name := range []string{sessionCookieName, refreshCookieName} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})
	}
}

// requestOrigin derives "scheme://host" from the incoming request, for the
// base-URL fallback when BASE_URL isn't configured.
func requestOrigin(c echo.Context) string {
	req := c.Request()
	scheme := "http"
	if req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	if req.Host == "" {
		return ""
	}
	return scheme + "://" + req.Host
}

// --- Validation helpers ---

// validateSignupRequest performs server-side validation on the signup form.
// Returns an error message or empty string.
func validateSignupRequest(req *SignupRequest) string {
	if req.Email == "" {
		return "email is required"
	}
	if req.FullName == "" {
		return "full name is required"
	}
	if len(req.FullName) > 100 {
		return "full name must be at most 100 characters"
	}
	if req.Password == "" {
		return "password is required"
	}
	if len(req.Password) > 128 {
		return "password must be at most 128 characters"
	}
	if req.Confirm != req.Password {
		return "passwords do not match"
	}
	if req.Terms != "on" {
		return "you must accept the terms to create an account"
	}
	if PasswordStrength(req.Password) < 3 {
		return "password is too weak: use at least 8 characters mixing upper and lower case, numbers, and symbols"
	}
	return ""
}
