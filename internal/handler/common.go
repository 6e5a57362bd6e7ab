package handler // handler defines http handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-tracker/internal/validate"
)

// validationFailed writes the standard 400 body for an invalid
// payload: a summary message plus one entry per failing field.
func validationFailed(c echo.Context, errs []validate.FieldError) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"message": "validation failed",
		"errors":  errs,
	})
}

// pathID parses the :id path parameter as a positive integer.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
