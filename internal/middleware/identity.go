package middleware

// identity.go defines helpers for pulling the authenticated identity
// that JWTAuth stored in the Echo context. Handlers use these instead
// of touching the raw context keys.

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/model"
)

// ErrNoIdentity is returned when no authenticated user is present in
// the context, meaning JWTAuth did not run or did not pass.
var ErrNoIdentity = errors.New("no authenticated identity in context")

// CurrentUserID extracts the authenticated user's id from the context.
func CurrentUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get("user_id").(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, ErrNoIdentity
}

// CurrentUser extracts the full authenticated user record from the
// context.
func CurrentUser(c echo.Context) (model.User, error) {
	if u, ok := c.Get("current_user").(model.User); ok && u.ID != 0 {
		return u, nil
	}
	return model.User{}, ErrNoIdentity
}
