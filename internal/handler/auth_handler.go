package handler

import (
	"net/http"

	"github.com/Shubhojit-Official/Mailto/internal/config"
	"github.com/Shubhojit-Official/Mailto/internal/middleware"
	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
)

// Scopes requested at sign-in. gmail.send is all the transport needs.
var googleScopes = []string{
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// completeUserAuth is swapped in tests.
var completeUserAuth = gothic.CompleteUserAuth

type AuthHandler struct {
	authService service.AuthService
	logger      echo.Logger
}

func NewAuthHandler(authService service.AuthService, config *config.Config, logger echo.Logger) *AuthHandler {
	gothic.Store = NewSessionStore([]byte(config.SessionSecret), config.IsProduction())

	provider := google.New(
		config.GoogleClientID,
		config.GoogleClientSecret,
		config.BaseURL+"/auth/google/callback",
		googleScopes...,
	)
	// Offline access with forced consent so Google always returns a
	// refresh token for the mail transport.
	provider.SetAccessType("offline")
	provider.SetPrompt("consent")
	goth.UseProviders(provider)

	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (h *AuthHandler) BeginAuthHandler(c echo.Context) error {
	if c.Param("provider") != "google" {
		return badRequest(c, "Invalid provider")
	}

	req := withProvider(c.Request())
	gothic.BeginAuthHandler(c.Response(), req)
	return nil
}

// CallbackHandler finishes the Google sign-in and answers with a session
// token for the API.
func (h *AuthHandler) CallbackHandler(c echo.Context) error {
	if c.Param("provider") != "google" {
		return badRequest(c, "Invalid provider")
	}

	googleUser, err := completeUserAuth(c.Response(), withProvider(c.Request()))
	if err != nil {
		h.logger.Error("Failed to complete user auth:", err)
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Authentication failed",
			"code":  "UNAUTHENTICATED",
		})
	}

	user, err := h.authService.GetOrCreateUser(
		c.Request().Context(),
		googleUser.Provider+"_"+googleUser.UserID,
		googleUser.Email,
		googleUser.Name,
		googleUser.AccessToken,
		googleUser.RefreshToken,
		googleUser.ExpiresAt,
	)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	token, err := h.authService.IssueToken(user)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

// Me returns the signed-in user.
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := h.authService.GetUser(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
			"code":  "UNAUTHENTICATED",
		})
	}
	return c.JSON(http.StatusOK, user)
}

// withProvider exposes the route's provider to gothic, which reads it from
// the query string.
func withProvider(req *http.Request) *http.Request {
	q := req.URL.Query()
	q.Set("provider", "google")
	req.URL.RawQuery = q.Encode()
	return req
}
