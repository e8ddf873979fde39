package handler

import (
	"net/http"

	"github.com/Shubhojit-Official/Mailto/internal/apperr"

	"github.com/labstack/echo/v4"
)

// respondError writes {"error", "code"} with the status carried by err.
// Only the message of a categorized error reaches the client, never its cause.
func respondError(c echo.Context, logger echo.Logger, err error) error {
	status := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)

	message := "Internal server error"
	if appErr, ok := apperr.As(err); ok {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request().Method, " ", c.Path(), ": ", err)
	}

	return c.JSON(status, map[string]string{
		"error": message,
		"code":  string(kind),
	})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{
		"error": message,
		"code":  string(apperr.KindValidation),
	})
}
