package portfolio

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradingsim/tradingsim/internal/middleware"
	"github.com/tradingsim/tradingsim/internal/plugins/auth"
)

// Handler serves the landing page and the signed-in dashboard pages.
type Handler struct {
	service PortfolioService
	oneTap  auth.OneTapWidget
}

// NewHandler creates a new portfolio handler. oneTap may be nil when
// Google sign-in is not configured.
func NewHandler(service PortfolioService, oneTap auth.OneTapWidget) *Handler {
	return &Handler{service: service, oneTap: oneTap}
}

// Landing renders the public landing page (GET /). The session guard
// already sent signed-in visitors to /home, so everyone here is
// anonymous and gets the One Tap prompt when it's configured.
func (h *Handler) Landing(c echo.Context) error {
	var oneTap auth.OneTapData
	hasOneTap := false
	if h.oneTap != nil {
		oneTap, hasOneTap = h.oneTap.Prepare(c)
	}
	return middleware.Render(c, http.StatusOK, LandingPage(oneTap, hasOneTap))
}

// Home renders the welcome dashboard (GET /home).
func (h *Handler) Home(c echo.Context) error {
	name := ""
	if session, ok := auth.GetSession(c); ok {
		name = session.Name
		if name == "" {
			name = session.Email
		}
	}
	return middleware.Render(c, http.StatusOK, HomePage(name))
}

// Investments renders the holdings table (GET /investments).
func (h *Handler) Investments(c echo.Context) error {
	return middleware.Render(c, http.StatusOK, InvestmentsPage(h.service.Investments()))
}

// Transactions renders the trade history (GET /transactions). Filter,
// sort, and search arrive as query parameters so views are linkable.
func (h *Handler) Transactions(c echo.Context) error {
	query := queryFromRequest(c)
	rows := h.service.Transactions(query)
	return middleware.Render(c, http.StatusOK, TransactionsPage(query, rows))
}

// ExportCSV streams the current transaction view as a CSV download
// (GET /transactions/export).
func (h *Handler) ExportCSV(c echo.Context) error {
	data, err := h.service.ExportCSV(queryFromRequest(c))
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="transactions.csv"`)
	return c.Blob(http.StatusOK, "text/csv", data)
}

// queryFromRequest binds the filter controls from the URL.
func queryFromRequest(c echo.Context) TransactionQuery {
	return TransactionQuery{
		Filter: c.QueryParam("action"),
		Sort:   c.QueryParam("sort"),
		Search: c.QueryParam("q"),
	}
}
