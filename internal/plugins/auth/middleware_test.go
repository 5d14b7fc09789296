package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradingsim/tradingsim/internal/apperror"
)

// mockAuthService implements AuthService for guard and handler tests.
// Operations that mint sessions fail by default so a test can never hand
// a nil token pair to the cookie helpers by accident.
type mockAuthService struct {
	validateAccessFn    func(ctx context.Context, accessToken string) (*Session, error)
	refreshFn           func(ctx context.Context, rawRefresh string) (*TokenPair, *Session, error)
	loginFn             func(ctx context.Context, input LoginInput) (*TokenPair, *User, error)
	exchangeResetCodeFn func(ctx context.Context, code string) (*TokenPair, *User, error)
	updatePasswordFn    func(ctx context.Context, userID, newPassword string) error
}

func (m *mockAuthService) Register(ctx context.Context, input RegisterInput, baseURL string) (*User, error) {
	return nil, nil
}

func (m *mockAuthService) ConfirmEmail(ctx context.Context, code string) error { return nil }

func (m *mockAuthService) Login(ctx context.Context, input LoginInput) (*TokenPair, *User, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, input)
	}
	return nil, nil, apperror.NewUnauthorized("invalid email or password")
}

func (m *mockAuthService) InitiatePasswordReset(ctx context.Context, email, baseURL string) error {
	return nil
}

func (m *mockAuthService) ExchangeResetCode(ctx context.Context, code string) (*TokenPair, *User, error) {
	if m.exchangeResetCodeFn != nil {
		return m.exchangeResetCodeFn(ctx, code)
	}
	return nil, nil, apperror.NewUnauthorized("this link is invalid or has expired")
}

func (m *mockAuthService) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	if m.updatePasswordFn != nil {
		return m.updatePasswordFn(ctx, userID, newPassword)
	}
	return nil
}

func (m *mockAuthService) CreateSessionFor(ctx context.Context, user *User) (*TokenPair, error) {
	return nil, apperror.NewUnauthorized("session expired or invalid")
}

func (m *mockAuthService) ValidateAccess(ctx context.Context, accessToken string) (*Session, error) {
	if m.validateAccessFn != nil {
		return m.validateAccessFn(ctx, accessToken)
	}
	return nil, apperror.NewUnauthorized("session expired or invalid")
}

func (m *mockAuthService) Refresh(ctx context.Context, rawRefresh string) (*TokenPair, *Session, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, rawRefresh)
	}
	return nil, nil, apperror.NewUnauthorized("session expired or invalid")
}

func (m *mockAuthService) SignOut(ctx context.Context, accessToken, rawRefresh string) error {
	return nil
}

func (m *mockAuthService) EnsureDemoUser(ctx context.Context) error { return nil }

// --- Test helpers ---

// guardRequest runs a request with the guard installed and a terminal
// handler that records reaching it.
func guardRequest(t *testing.T, svc AuthService, path string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()

	reached := false
	handler := func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := SessionGuard(svc)(handler)(c); err != nil {
		t.Fatalf("guard returned error: %v", err)
	}
	return rec, reached
}

func validSession() *Session {
	return &Session{
		UserID:    "user-1",
		Email:     "alice@example.com",
		Name:      "Alice",
		CreatedAt: time.Now().UTC(),
	}
}

func authedService() *mockAuthService {
	return &mockAuthService{
		validateAccessFn: func(ctx context.Context, accessToken string) (*Session, error) {
			return validSession(), nil
		},
	}
}

func sessionCookie(value string) *http.Cookie {
	return &http.Cookie{Name: sessionCookieName, Value: value}
}

func refreshCookie(value string) *http.Cookie {
	return &http.Cookie{Name: refreshCookieName, Value: value}
}

// --- Guard Tests ---

func TestSessionGuard_AuthedOnGuestPagesRedirectsHome(t *testing.T) {
	for _, path := range []string{"/", "/login", "/signup"} {
		t.Run(path, func(t *testing.T) {
			rec, reached := guardRequest(t, authedService(), path, sessionCookie("tok"))
			if reached {
				t.Error("handler must not run")
			}
			if rec.Code != http.StatusSeeOther {
				t.Errorf("expected 303, got %d", rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != "/home" {
				t.Errorf("expected redirect to /home, got %s", loc)
			}
		})
	}
}

func TestSessionGuard_AnonOnProtectedPagesRedirectsLogin(t *testing.T) {
	paths := []string{"/home", "/profile", "/investments", "/transactions", "/transactions/export"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec, reached := guardRequest(t, &mockAuthService{}, path)
			if reached {
				t.Error("handler must not run")
			}
			if rec.Code != http.StatusSeeOther {
				t.Errorf("expected 303, got %d", rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != "/login" {
				t.Errorf("expected redirect to /login, got %s", loc)
			}
		})
	}
}

func TestSessionGuard_AnonOnPublicPagesPassesThrough(t *testing.T) {
	for _, path := range []string{"/", "/login", "/signup", "/forgot-password", "/reset-password"} {
		t.Run(path, func(t *testing.T) {
			rec, reached := guardRequest(t, &mockAuthService{}, path)
			if !reached {
				t.Error("expected handler to run")
			}
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
		})
	}
}

func TestSessionGuard_AuthedOnProtectedPagesPassesThrough(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(sessionCookie("tok"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		session, ok := GetSession(c)
		if !ok {
			t.Fatal("expected session in context")
		}
		if session.UserID != "user-1" {
			t.Errorf("expected user-1, got %s", session.UserID)
		}
		if GetUserID(c) != "user-1" {
			t.Errorf("expected GetUserID user-1, got %s", GetUserID(c))
		}
		return c.NoContent(http.StatusOK)
	}

	if err := SessionGuard(authedService())(handler)(c); err != nil {
		t.Fatalf("guard returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSessionGuard_SkipsStaticAndProbes(t *testing.T) {
	validateCalls := 0
	svc := &mockAuthService{
		validateAccessFn: func(ctx context.Context, accessToken string) (*Session, error) {
			validateCalls++
			return validSession(), nil
		},
	}

	for _, path := range []string{"/static/css/app.css", "/media/avatar.png", "/healthz", "/favicon.ico"} {
		_, reached := guardRequest(t, svc, path, sessionCookie("tok"))
		if !reached {
			t.Errorf("expected handler to run for %s", path)
		}
	}
	if validateCalls != 0 {
		t.Errorf("guard must not touch the session store for excluded paths, got %d calls", validateCalls)
	}
}

func TestSessionGuard_RefreshRotatesExpiredAccess(t *testing.T) {
	newPair := &TokenPair{
		AccessToken:      "new-access",
		AccessExpiresAt:  time.Now().Add(30 * time.Minute),
		RefreshToken:     "new-refresh",
		RefreshExpiresAt: time.Now().Add(30 * 24 * time.Hour),
	}
	svc := &mockAuthService{
		refreshFn: func(ctx context.Context, rawRefresh string) (*TokenPair, *Session, error) {
			if rawRefresh != "live-refresh" {
				t.Errorf("expected live-refresh, got %s", rawRefresh)
			}
			return newPair, validSession(), nil
		},
	}

	rec, reached := guardRequest(t, svc, "/home",
		sessionCookie("dead-access"), refreshCookie("live-refresh"))
	if !reached {
		t.Fatal("expected handler to run after transparent refresh")
	}

	// Fresh cookies must be on the response.
	cookies := rec.Result().Cookies()
	var gotAccess, gotRefresh string
	for _, cookie := range cookies {
		switch cookie.Name {
		case sessionCookieName:
			gotAccess = cookie.Value
		case refreshCookieName:
			gotRefresh = cookie.Value
		}
	}
	if gotAccess != "new-access" || gotRefresh != "new-refresh" {
		t.Errorf("expected rotated cookies, got access=%q refresh=%q", gotAccess, gotRefresh)
	}
}

func TestSessionGuard_DeadCookiesCleared(t *testing.T) {
	rec, _ := guardRequest(t, &mockAuthService{}, "/home",
		sessionCookie("dead-access"), refreshCookie("dead-refresh"))

	cleared := 0
	for _, cookie := range rec.Result().Cookies() {
		if (cookie.Name == sessionCookieName || cookie.Name == refreshCookieName) && cookie.MaxAge < 0 {
			cleared++
		}
	}
	if cleared != 2 {
		t.Errorf("expected both dead cookies cleared, got %d", cleared)
	}
}
