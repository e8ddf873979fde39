package handler

import (
	"io"
	"net/http"

	"github.com/Shubhojit-Official/Mailto/internal/middleware"
	"github.com/Shubhojit-Official/Mailto/internal/service"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
)

type ContextHandler struct {
	contextService service.ContextService
	logger         echo.Logger
}

func NewContextHandler(contextService service.ContextService, logger echo.Logger) *ContextHandler {
	return &ContextHandler{
		contextService: contextService,
		logger:         logger,
	}
}

type saveContextRequest struct {
	WorkspaceID     string            `json:"workspaceId"`
	Intent          string            `json:"intent"`
	Data            map[string]string `json:"data"`
	AdditionalNotes string            `json:"additionalNotes"`
}

// SaveContext accepts the intent's fields either nested under "data" or at
// the top level of the body.
func (h *ContextHandler) SaveContext(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return badRequest(c, "Invalid request body")
	}

	var req saveContextRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	var loose map[string]interface{}
	if err := json.Unmarshal(body, &loose); err != nil {
		return badRequest(c, "Invalid request body")
	}

	values := make(map[string]string, len(loose)+len(req.Data))
	for k, v := range loose {
		if s, ok := v.(string); ok {
			values[k] = s
		}
	}
	for k, v := range req.Data {
		values[k] = v
	}

	sc, err := h.contextService.SaveContext(c.Request().Context(), middleware.UserID(c), service.SaveContextInput{
		WorkspaceID:     req.WorkspaceID,
		Intent:          req.Intent,
		Values:          values,
		AdditionalNotes: req.AdditionalNotes,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, sc)
}

func (h *ContextHandler) GetContext(c echo.Context) error {
	sc, err := h.contextService.GetContext(c.Request().Context(), middleware.UserID(c), c.Param("workspaceId"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, sc)
}
