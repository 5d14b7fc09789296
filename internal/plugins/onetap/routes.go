package onetap

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradingsim/tradingsim/internal/middleware"
)

// RegisterRoutes sets up the credential exchange endpoint. The page script
// posts here with the CSRF header; rate limiting keeps token-stuffing at
// bay.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.POST("/auth/google", h.Exchange, middleware.RateLimit(10, time.Minute))
}
