package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradingsim/tradingsim/internal/middleware"
)

// RegisterRoutes sets up all auth-related routes on the given Echo
// instance. The routes themselves are public; the global SessionGuard
// already bounced signed-in visitors away from /login and /signup.
//
// POST endpoints are rate-limited to prevent brute-force and credential
// stuffing attacks: 10 attempts per IP per minute for login, 5 for signup
// and password reset requests.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	e.POST("/login/demo", h.DemoLogin, middleware.RateLimit(10, time.Minute))

	e.GET("/signup", h.SignupForm)
	e.POST("/signup", h.Signup, middleware.RateLimit(5, time.Minute))
	e.GET("/confirm", h.Confirm)

	e.GET("/forgot-password", h.ForgotPasswordForm)
	e.POST("/forgot-password", h.ForgotPassword, middleware.RateLimit(5, time.Minute))
	e.GET("/reset-password", h.ResetPasswordForm)
	e.POST("/reset-password", h.ResetPassword)

	e.POST("/logout", h.Logout)
}
