package app

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradingsim/tradingsim/internal/mailer"
	"github.com/tradingsim/tradingsim/internal/middleware"
	"github.com/tradingsim/tradingsim/internal/plugins/auth"
	"github.com/tradingsim/tradingsim/internal/plugins/onetap"
	"github.com/tradingsim/tradingsim/internal/plugins/portfolio"
	"github.com/tradingsim/tradingsim/internal/plugins/profile"
	"github.com/tradingsim/tradingsim/internal/templates/layouts"
)

// RegisterRoutes wires up all plugins: repositories, services, handlers,
// and their routes. Returns the auth service so main can seed the demo
// account after startup.
//
// This is the single place where all routes are aggregated. When a new
// plugin is added, it is constructed and registered here.
func (a *App) RegisterRoutes(mail mailer.MailSender) auth.AuthService {
	e := a.Echo

	// --- Auth ---
	userRepo := auth.NewUserRepository(a.DB)
	tokenRepo := auth.NewTokenRepository(a.DB)
	authService := auth.NewAuthService(userRepo, tokenRepo, a.Redis, mail, a.Config.Auth, a.Config.Demo)

	// --- Google One Tap (optional) ---
	// The widget only appears on login/signup when a client ID is configured.
	var oneTapWidget auth.OneTapWidget
	if a.Config.Google.Enabled() {
		oneTapService := onetap.NewOneTapService(a.Redis, userRepo, a.Config.Google.ClientID, "")
		oneTapHandler := onetap.NewHandler(oneTapService, authService, a.Config.Google.ClientID)
		onetap.RegisterRoutes(e, oneTapHandler)
		oneTapWidget = oneTapHandler
	}

	authHandler := auth.NewHandler(authService, a.Config, oneTapWidget)

	// The session guard runs globally: it resolves the session from cookies,
	// refreshes expired access tokens, and enforces the redirect rules
	// (signed-in visitors off the auth pages, anonymous visitors off the app).
	e.Use(auth.SessionGuard(authService))

	auth.RegisterRoutes(e, authHandler)

	// --- Portfolio (landing, home, investments, transactions) ---
	portfolioService := portfolio.NewPortfolioService()
	portfolio.RegisterRoutes(e, portfolio.NewHandler(portfolioService, oneTapWidget))

	// --- Profile ---
	profileRepo := profile.NewProfileRepository(a.DB)
	profileService := profile.NewProfileService(profileRepo, userRepo, a.Config.Upload.MediaPath, a.Config.Upload.MaxSize)
	profile.RegisterRoutes(e, profile.NewHandler(profileService))

	// Health check endpoint for container health monitoring.
	e.GET("/healthz", a.healthz)

	// Copy session and CSRF data into the render context so templates can
	// read it without importing Echo.
	middleware.LayoutInjector = layoutInjector

	return authService
}

// healthz reports liveness of the server and its backing stores.
func (a *App) healthz(c echo.Context) error {
	ctx := c.Request().Context()
	if err := a.DB.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "down"})
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "redis": "down"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// layoutInjector copies layout-relevant request data from the Echo context
// into the Go context consumed by the page components.
func layoutInjector(c echo.Context, ctx context.Context) context.Context {
	ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
	ctx = layouts.SetActivePath(ctx, c.Request().URL.Path)

	if session, ok := auth.GetSession(c); ok {
		ctx = layouts.SetIsAuthenticated(ctx, true)
		ctx = layouts.SetUserID(ctx, session.UserID)
		ctx = layouts.SetUserName(ctx, session.Name)
		ctx = layouts.SetUserEmail(ctx, session.Email)
	}
	return ctx
}
