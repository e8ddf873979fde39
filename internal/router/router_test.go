package router_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/ai"
	"github.com/Shubhojit-Official/Mailto/internal/config"
	"github.com/Shubhojit-Official/Mailto/internal/gmail"
	"github.com/Shubhojit-Official/Mailto/internal/handler"
	"github.com/Shubhojit-Official/Mailto/internal/lock"
	"github.com/Shubhojit-Official/Mailto/internal/logger"
	"github.com/Shubhojit-Official/Mailto/internal/profile"
	"github.com/Shubhojit-Official/Mailto/internal/repository/memory"
	"github.com/Shubhojit-Official/Mailto/internal/router"
	"github.com/Shubhojit-Official/Mailto/internal/service"
	"github.com/Shubhojit-Official/Mailto/internal/sse"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	e         *echo.Echo
	token     string
	transport *gmail.MockTransport
	auth      service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.NewWithWriter(io.Discard)

	users := memory.NewInMemoryUserRepository()
	workspaces := memory.NewInMemoryWorkspaceRepository()
	contexts := memory.NewInMemorySenderContextRepository()
	recipients := memory.NewInMemoryRecipientRepository()
	emails := memory.NewInMemoryEmailRepository()

	gen := ai.NewMockTextGenerator()
	gen.GenerateFunc = func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "cold email writer") {
			return "Subject: Trail shoes\n\nHi,\n\nI make trail shoes.\n\nOpen to a chat?", nil
		}
		return "I sell trail shoes to hikers.", nil
	}
	transport := gmail.NewMockTransport()
	sseManager := sse.NewSSEManager(log)
	t.Cleanup(sseManager.Close)

	authService := service.NewAuthService(users, "jwt-secret", time.Hour, log)
	emailService := service.NewEmailService(emails, recipients, contexts, workspaces, users,
		service.NewDraftGenerator(gen, log), transport, lock.NewMemoryLocker(), sseManager, log)

	e := echo.New()
	cfg := &config.Config{BaseURL: "http://localhost:8080", SessionSecret: "session-secret"}
	router.SetupRoutes(e, router.Handlers{
		Auth:      handler.NewAuthHandler(authService, cfg, e.Logger),
		Workspace: handler.NewWorkspaceHandler(service.NewWorkspaceService(workspaces, log), e.Logger),
		Recipient: handler.NewRecipientHandler(service.NewRecipientService(recipients, workspaces, profile.NewMockFetcher(),
			service.NewPersonalitySummarizer(gen, log), 12, log), e.Logger),
		Context: handler.NewContextHandler(service.NewContextService(contexts, workspaces, service.NewContextSummarizer(gen, log), log), e.Logger),
		Email:   handler.NewEmailHandler(emailService, sseManager, e.Logger),
	}, authService)

	user, err := authService.GetOrCreateUser(context.Background(), "google_1", "me@example.com", "Me", "access", "refresh", time.Now().Add(time.Hour))
	require.NoError(t, err)
	token, err := authService.IssueToken(user)
	require.NoError(t, err)

	return &testServer{e: e, token: token, transport: transport, auth: authService}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if s.token != "" {
		req.Header.Set("token", s.token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out map[string]interface{}
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)
	s.token = ""
	rec, body := s.do(t, http.MethodGet, "/api/v1/workspace", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", body["code"])
}

func TestOutreachFlow(t *testing.T) {
	s := newTestServer(t)

	rec, ws := s.do(t, http.MethodPost, "/api/v1/workspace", `{"name":"Trail shoes","color":"green"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	wsID := ws["id"].(string)

	rec, sc := s.do(t, http.MethodPost, "/api/v1/context",
		`{"workspaceId":"`+wsID+`","intent":"pitch","product":"X","target":"Y","value":"Z","proof":"W"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "pitch", sc["intent"])
	assert.Equal(t, "X", sc["data"].(map[string]interface{})["product"])
	assert.NotContains(t, sc["summary"], "product:")

	rec, body := s.do(t, http.MethodPost, "/api/v1/context", `{"workspaceId":"`+wsID+`","intent":"job","role":"Engineer"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "STATE_CONFLICT", body["code"])

	rec, rc := s.do(t, http.MethodPost, "/api/v1/recipient", `{"workspaceId":"`+wsID+`","handle":"alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Nil(t, rc["profile_snapshot"])
	rcID := rc["id"].(string)

	rec, gen := s.do(t, http.MethodPost, "/api/v1/mail/generate",
		`{"workspaceId":"`+wsID+`","recipientId":"`+rcID+`","personalization":80,"formality":20,"persuasiveness":50}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	email := gen["email"].(map[string]interface{})
	assert.Equal(t, "draft", email["status"])
	assert.Equal(t, "Trail shoes", email["subject"])
	emailID := email["id"].(string)

	rec, body = s.do(t, http.MethodPatch, "/api/v1/mail/send/"+emailID, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "STATE_CONFLICT", body["code"])
	assert.Equal(t, 0, s.transport.Calls())

	rec, got := s.do(t, http.MethodGet, "/api/v1/mail/"+emailID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "draft", got["status"])

	rec, edited := s.do(t, http.MethodPatch, "/api/v1/mail/"+emailID, `{"subject":"Edited"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Edited", edited["subject"])

	rec, _ = s.do(t, http.MethodPatch, "/api/v1/mail/"+emailID+"/opened", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, list := s.doList(t, "/api/v1/mail/all/"+wsID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, list, 1)
}

func TestSendAndTrack(t *testing.T) {
	s := newTestServer(t)

	_, ws := s.do(t, http.MethodPost, "/api/v1/workspace", `{"name":"W"}`)
	wsID := ws["id"].(string)
	s.do(t, http.MethodPost, "/api/v1/context", `{"workspaceId":"`+wsID+`","intent":"job","data":{"role":"Engineer"}}`)
	_, rc := s.do(t, http.MethodPost, "/api/v1/recipient", `{"workspaceId":"`+wsID+`","username":"bob","email":"bob@example.com"}`)
	_, gen := s.do(t, http.MethodPost, "/api/v1/mail/generate", `{"workspaceId":"`+wsID+`","recipientId":"`+rc["id"].(string)+`"}`)
	emailID := gen["email"].(map[string]interface{})["id"].(string)

	rec, sent := s.do(t, http.MethodPatch, "/api/v1/mail/send/"+emailID, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "sent", sent["status"])
	assert.NotEmpty(t, sent["sent_at"])

	rec, _ = s.do(t, http.MethodPatch, "/api/v1/mail/send/"+emailID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, s.transport.Calls())

	rec, opened := s.do(t, http.MethodPatch, "/api/v1/mail/"+emailID+"/opened", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "opened", opened["status"])

	rec, replied := s.do(t, http.MethodPatch, "/api/v1/mail/"+emailID+"/replied", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "replied", replied["status"])
}

func TestForeignWorkspaceIsForbidden(t *testing.T) {
	s := newTestServer(t)
	_, ws := s.do(t, http.MethodPost, "/api/v1/workspace", `{"name":"Mine"}`)
	wsID := ws["id"].(string)

	other, err := s.auth.GetOrCreateUser(context.Background(), "google_2", "x@example.com", "X", "a", "", time.Now())
	require.NoError(t, err)
	s.token, err = s.auth.IssueToken(other)
	require.NoError(t, err)

	rec, body := s.do(t, http.MethodGet, "/api/v1/workspace/"+wsID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AUTHORIZATION_ERROR", body["code"])

	rec, _ = s.do(t, http.MethodPost, "/api/v1/recipient", `{"workspaceId":"`+wsID+`","handle":"alice"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/v1/context/"+wsID, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/v1/workspace", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	rec, _ = s.do(t, http.MethodPost, "/api/v1/recipient", `{"handle":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, ws := s.do(t, http.MethodPost, "/api/v1/workspace", `{"name":"W"}`)
	rec, _ = s.do(t, http.MethodPost, "/api/v1/context", `{"workspaceId":"`+ws["id"].(string)+`","intent":"spam"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func (s *testServer) doList(t *testing.T, path string) (*httptest.ResponseRecorder, []map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("token", s.token)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}
