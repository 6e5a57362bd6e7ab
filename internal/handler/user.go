package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/middleware"
)

// UserHandler serves the authenticated user's own record. The request
// gate already resolved the identity, so these endpoints only project
// it; the password hash is absent from PublicUser by construction.
type UserHandler struct{}

func NewUserHandler() *UserHandler { return &UserHandler{} }

// Profile handles GET /v1/users/profile.
func (h *UserHandler) Profile(c echo.Context) error {
	u, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, u.Public())
}

// Me handles GET /v1/users/me. Same projection as Profile; both paths
// are kept for client compatibility.
func (h *UserHandler) Me(c echo.Context) error {
	return h.Profile(c)
}
