package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/config"
	"github.com/Shubhojit-Official/Mailto/internal/logger"
	"github.com/Shubhojit-Official/Mailto/internal/repository/memory"
	"github.com/Shubhojit-Official/Mailto/internal/service"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/markbates/goth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubCompleteUserAuth(t *testing.T, fn func(http.ResponseWriter, *http.Request) (goth.User, error)) {
	t.Helper()
	orig := completeUserAuth
	completeUserAuth = fn
	t.Cleanup(func() { completeUserAuth = orig })
}

func newAuthHandlerForTest(t *testing.T) (*AuthHandler, service.AuthService, *echo.Echo) {
	t.Helper()
	e := echo.New()
	authService := service.NewAuthService(memory.NewInMemoryUserRepository(), "secret", time.Hour, logger.NewWithWriter(io.Discard))
	h := NewAuthHandler(authService, &config.Config{
		GoogleClientID:     "client",
		GoogleClientSecret: "secret",
		SessionSecret:      "session-secret",
		BaseURL:            "http://localhost:8080",
	}, e.Logger)
	return h, authService, e
}

func TestCallbackHandlerIssuesToken(t *testing.T) {
	h, authService, e := newAuthHandlerForTest(t)
	stubCompleteUserAuth(t, func(w http.ResponseWriter, r *http.Request) (goth.User, error) {
		assert.Equal(t, "google", r.URL.Query().Get("provider"))
		return goth.User{
			Provider:     "google",
			UserID:       "42",
			Email:        "me@example.com",
			Name:         "Me",
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    time.Now().Add(time.Hour),
		}, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=x&code=y", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("provider")
	c.SetParamValues("google")

	require.NoError(t, h.CallbackHandler(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "me@example.com", resp.User.Email)

	userID, err := authService.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, userID)

	user, err := authService.GetUser(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, user.CanSendMail())
}

func TestCallbackHandlerAuthFailure(t *testing.T) {
	h, _, e := newAuthHandlerForTest(t)
	stubCompleteUserAuth(t, func(http.ResponseWriter, *http.Request) (goth.User, error) {
		return goth.User{}, errors.New("state mismatch")
	})

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/google/callback", nil), rec)
	c.SetParamNames("provider")
	c.SetParamValues("google")

	require.NoError(t, h.CallbackHandler(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")
}

func TestCallbackHandlerRejectsUnknownProvider(t *testing.T) {
	h, _, e := newAuthHandlerForTest(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/github/callback", nil), rec)
	c.SetParamNames("provider")
	c.SetParamValues("github")

	require.NoError(t, h.CallbackHandler(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
