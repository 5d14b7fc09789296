package portfolio

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the landing page and the dashboard pages. Access
// control lives in the global session guard, not here: /home,
// /investments, and /transactions sit under protected prefixes.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/", h.Landing)
	e.GET("/home", h.Home)
	e.GET("/investments", h.Investments)
	e.GET("/transactions", h.Transactions)
	e.GET("/transactions/export", h.ExportCSV)
}
