package handler

import (
	"net/http"

	"github.com/Shubhojit-Official/Mailto/internal/middleware"
	"github.com/Shubhojit-Official/Mailto/internal/service"

	"github.com/labstack/echo/v4"
)

type WorkspaceHandler struct {
	workspaceService service.WorkspaceService
	logger           echo.Logger
}

func NewWorkspaceHandler(workspaceService service.WorkspaceService, logger echo.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceService: workspaceService,
		logger:           logger,
	}
}

func (h *WorkspaceHandler) CreateWorkspace(c echo.Context) error {
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	ws, err := h.workspaceService.CreateWorkspace(c.Request().Context(), middleware.UserID(c), req.Name, req.Color)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, ws)
}

func (h *WorkspaceHandler) ListWorkspaces(c echo.Context) error {
	list, err := h.workspaceService.ListWorkspaces(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *WorkspaceHandler) GetWorkspace(c echo.Context) error {
	ws, err := h.workspaceService.GetWorkspace(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, ws)
}

func (h *WorkspaceHandler) DeleteWorkspace(c echo.Context) error {
	if err := h.workspaceService.DeleteWorkspace(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
