package handler

import (
	"net/http"

	"github.com/Shubhojit-Official/Mailto/internal/middleware"
	"github.com/Shubhojit-Official/Mailto/internal/service"

	"github.com/labstack/echo/v4"
)

type RecipientHandler struct {
	recipientService service.RecipientService
	logger           echo.Logger
}

func NewRecipientHandler(recipientService service.RecipientService, logger echo.Logger) *RecipientHandler {
	return &RecipientHandler{
		recipientService: recipientService,
		logger:           logger,
	}
}

// CreateRecipient adds a recipient and enriches it with a profile snapshot
// when the profile provider answers.
func (h *RecipientHandler) CreateRecipient(c echo.Context) error {
	var req struct {
		WorkspaceID string `json:"workspaceId"`
		Handle      string `json:"handle"`
		Username    string `json:"username"`
		Email       string `json:"email"`
		Name        string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Handle == "" {
		req.Handle = req.Username
	}

	recipient, err := h.recipientService.CreateRecipient(c.Request().Context(), middleware.UserID(c), service.CreateRecipientInput{
		WorkspaceID: req.WorkspaceID,
		Handle:      req.Handle,
		Email:       req.Email,
		Name:        req.Name,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, recipient)
}

func (h *RecipientHandler) ListRecipients(c echo.Context) error {
	list, err := h.recipientService.ListRecipients(c.Request().Context(), middleware.UserID(c), c.Param("workspaceId"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *RecipientHandler) DeleteRecipient(c echo.Context) error {
	if err := h.recipientService.DeleteRecipient(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
