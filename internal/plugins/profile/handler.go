package profile

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradingsim/tradingsim/internal/apperror"
	"github.com/tradingsim/tradingsim/internal/middleware"
	"github.com/tradingsim/tradingsim/internal/plugins/auth"
)

// Handler serves the profile settings page and its mutations.
type Handler struct {
	service ProfileService
}

func NewHandler(service ProfileService) *Handler {
	return &Handler{service: service}
}

// Show renders the settings page for the signed-in user.
// GET /profile
func (h *Handler) Show(c echo.Context) error {
	user, prof, err := h.service.Page(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return err
	}
	data := ProfilePageData{
		CSRFToken: middleware.GetCSRFToken(c),
		User:      user,
		Profile:   prof,
		Success:   c.QueryParam("saved") == "1",
	}
	return middleware.Render(c, http.StatusOK, ProfilePage(data))
}

// Update saves name, theme, and notification preferences.
// POST /profile
func (h *Handler) Update(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid form submission")
	}
	input := UpdateInput{
		FullName:      req.FullName,
		Theme:         req.Theme,
		Notifications: req.Notifications == "on",
	}
	if err := h.service.Update(c.Request().Context(), auth.GetUserID(c), input); err != nil {
		return h.renderWithError(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/profile?saved=1")
}

// UploadAvatar accepts a multipart avatar image.
// POST /profile/avatar
func (h *Handler) UploadAvatar(c echo.Context) error {
	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return h.renderWithError(c, apperror.NewBadRequest("no image selected"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return apperror.NewInternal(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return apperror.NewInternal(err)
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if _, err := h.service.UploadAvatar(c.Request().Context(), auth.GetUserID(c), mimeType, data); err != nil {
		return h.renderWithError(c, err)
	}
	return c.Redirect(http.StatusSeeOther, "/profile?saved=1")
}

// renderWithError re-renders the settings page with a safe error banner
// instead of bouncing to the generic error page.
func (h *Handler) renderWithError(c echo.Context, cause error) error {
	user, prof, err := h.service.Page(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return err
	}
	data := ProfilePageData{
		CSRFToken: middleware.GetCSRFToken(c),
		User:      user,
		Profile:   prof,
		Error:     apperror.SafeMessage(cause),
	}
	return middleware.Render(c, apperror.SafeCode(cause), ProfilePage(data))
}
