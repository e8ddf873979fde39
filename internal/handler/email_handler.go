package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/middleware"
	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/service"
	"github.com/Shubhojit-Official/Mailto/internal/sse"

	"github.com/labstack/echo/v4"
)

const heartbeatInterval = 25 * time.Second

type EmailHandler struct {
	emailService service.EmailService
	sseManager   *sse.SSEManager
	logger       echo.Logger
}

func NewEmailHandler(emailService service.EmailService, sseManager *sse.SSEManager, logger echo.Logger) *EmailHandler {
	return &EmailHandler{
		emailService: emailService,
		sseManager:   sseManager,
		logger:       logger,
	}
}

// GenerateEmail drafts an email for a recipient from the workspace context.
func (h *EmailHandler) GenerateEmail(c echo.Context) error {
	var req struct {
		WorkspaceID     string `json:"workspaceId"`
		RecipientID     string `json:"recipientId"`
		Personalization int    `json:"personalization"`
		Formality       int    `json:"formality"`
		Persuasiveness  int    `json:"persuasiveness"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	email, err := h.emailService.GenerateEmail(c.Request().Context(), middleware.UserID(c), service.GenerateEmailInput{
		WorkspaceID: req.WorkspaceID,
		RecipientID: req.RecipientID,
		Tone:        model.NewTone(req.Personalization, req.Formality, req.Persuasiveness),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"email": email})
}

func (h *EmailHandler) CreateDraft(c echo.Context) error {
	var req struct {
		WorkspaceID string  `json:"workspaceId"`
		RecipientID string  `json:"recipientId"`
		Subject     *string `json:"subject"`
		Body        *string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	email, err := h.emailService.SaveDraft(c.Request().Context(), middleware.UserID(c), service.SaveDraftInput{
		WorkspaceID: req.WorkspaceID,
		RecipientID: req.RecipientID,
		Subject:     req.Subject,
		Body:        req.Body,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, email)
}

func (h *EmailHandler) UpdateDraft(c echo.Context) error {
	var req struct {
		Subject *string `json:"subject"`
		Body    *string `json:"body"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	email, err := h.emailService.SaveDraft(c.Request().Context(), middleware.UserID(c), service.SaveDraftInput{
		EmailID: c.Param("id"),
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, email)
}

func (h *EmailHandler) SendEmail(c echo.Context) error {
	email, err := h.emailService.SendEmail(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, email)
}

func (h *EmailHandler) MarkOpened(c echo.Context) error {
	email, err := h.emailService.MarkOpened(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, email)
}

func (h *EmailHandler) MarkReplied(c echo.Context) error {
	email, err := h.emailService.MarkReplied(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, email)
}

func (h *EmailHandler) GetEmail(c echo.Context) error {
	email, err := h.emailService.GetEmail(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, email)
}

func (h *EmailHandler) ListEmails(c echo.Context) error {
	list, err := h.emailService.ListEmails(c.Request().Context(), middleware.UserID(c), c.Param("workspaceId"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Events streams email status changes of the signed-in user.
func (h *EmailHandler) Events(c echo.Context) error {
	userID := middleware.UserID(c)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	clientChannel := h.sseManager.AddClient(userID)
	defer h.sseManager.RemoveClient(userID, clientChannel)

	initEvent, err := sse.Encode("connection", map[string]string{
		"message": "Connected to email updates",
		"userId":  userID,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(res, "data: %s\n\n", initEvent)
	res.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case eventData, ok := <-clientChannel:
			if !ok {
				return nil
			}
			fmt.Fprintf(res, "data: %s\n\n", eventData)
			res.Flush()
		case <-heartbeat.C:
			fmt.Fprint(res, ": ping\n\n")
			res.Flush()
		case <-c.Request().Context().Done():
			return nil
		}
	}
}
