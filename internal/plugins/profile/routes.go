package profile

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradingsim/tradingsim/internal/middleware"
)

// RegisterRoutes sets up the profile settings routes. All of them live
// under the /profile prefix, which the global SessionGuard protects.
// Avatar uploads are rate-limited since they hit the filesystem.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/profile", h.Show)
	e.POST("/profile", h.Update)
	e.POST("/profile/avatar", h.UploadAvatar, middleware.RateLimit(10, time.Minute))
}
