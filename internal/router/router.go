package router

import (
	"net/http"

	"github.com/Shubhojit-Official/Mailto/internal/handler"
	"github.com/Shubhojit-Official/Mailto/internal/middleware"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Workspace *handler.WorkspaceHandler
	Recipient *handler.RecipientHandler
	Context   *handler.ContextHandler
	Email     *handler.EmailHandler
}

func SetupRoutes(e *echo.Echo, h Handlers, verifier middleware.TokenVerifier) {
	e.JSONSerializer = JSONSerializer{}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// Public routes
	e.GET("/auth/:provider", h.Auth.BeginAuthHandler)
	e.GET("/auth/:provider/callback", h.Auth.CallbackHandler)

	api := e.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(verifier))

	api.GET("/me", h.Auth.Me)

	api.POST("/workspace", h.Workspace.CreateWorkspace)
	api.GET("/workspace", h.Workspace.ListWorkspaces)
	api.GET("/workspace/:id", h.Workspace.GetWorkspace)
	api.DELETE("/workspace/:id", h.Workspace.DeleteWorkspace)

	api.POST("/recipient", h.Recipient.CreateRecipient)
	api.GET("/recipient/:workspaceId", h.Recipient.ListRecipients)
	api.DELETE("/recipient/:id", h.Recipient.DeleteRecipient)

	api.POST("/context", h.Context.SaveContext)
	api.GET("/context/:workspaceId", h.Context.GetContext)

	api.POST("/mail/generate", h.Email.GenerateEmail)
	api.POST("/mail", h.Email.CreateDraft)
	api.GET("/mail/all/:workspaceId", h.Email.ListEmails)
	api.GET("/mail/:id", h.Email.GetEmail)
	api.PATCH("/mail/:id", h.Email.UpdateDraft)
	api.PATCH("/mail/send/:id", h.Email.SendEmail)
	api.PATCH("/mail/:id/opened", h.Email.MarkOpened)
	api.PATCH("/mail/:id/replied", h.Email.MarkReplied)

	// Real-time email updates via Server-Sent Events (SSE)
	api.GET("/events", h.Email.Events)
}
