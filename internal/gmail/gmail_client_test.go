package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/logger"
	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/service"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

func readParts(t *testing.T, raw []byte) (*mail.Message, map[string]string) {
	t.Helper()
	m, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/alternative", mediaType)

	parts := map[string]string{}
	mr := multipart.NewReader(m.Body, params["boundary"])
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		encoded, err := io.ReadAll(p)
		require.NoError(t, err)
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
		require.NoError(t, err)
		ct, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
		parts[ct] = string(decoded)
	}
	return m, parts
}

func TestBuildMessage(t *testing.T) {
	raw, err := BuildMessage("me@example.com", service.OutboundMessage{
		To:       "alice@example.com",
		Subject:  "Trail shoes for Ünterberg",
		TextBody: "Hi Alice,\n\nLine two.",
		HTMLBody: "Hi Alice,<br><br>Line two.",
	})
	require.NoError(t, err)

	m, parts := readParts(t, raw)
	assert.Equal(t, "me@example.com", m.Header.Get("From"))
	assert.Equal(t, "alice@example.com", m.Header.Get("To"))

	subject, err := new(mime.WordDecoder).DecodeHeader(m.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Trail shoes for Ünterberg", subject)

	assert.Equal(t, "Hi Alice,\n\nLine two.", parts["text/plain"])
	assert.Equal(t, "Hi Alice,<br><br>Line two.", parts["text/html"])
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	raw, err := BuildMessage("", service.OutboundMessage{
		To:       "alice@example.com\r\nBcc: evil@example.com",
		Subject:  "Hi\nBcc: evil@example.com",
		TextBody: "body",
	})
	require.NoError(t, err)

	m, _ := readParts(t, raw)
	assert.Empty(t, m.Header.Get("Bcc"))
	assert.Empty(t, m.Header.Get("From"))
}

func TestBuildMessageRequiresRecipient(t *testing.T) {
	_, err := BuildMessage("me@example.com", service.OutboundMessage{To: "  ", TextBody: "x"})
	assert.Error(t, err)
}

func TestTransportSend(t *testing.T) {
	var gotRaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/messages/send"), r.URL.Path)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))

		var body struct {
			Raw string `json:"raw"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotRaw = body.Raw

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg-1","threadId":"t-1"}`))
	}))
	defer srv.Close()

	tr := NewTransport(Config{Timeout: time.Second, Endpoint: srv.URL + "/"}, logger.NewWithWriter(io.Discard))
	sender := &model.User{
		ID:          "u1",
		Email:       "me@example.com",
		AccessToken: "access-token",
		TokenExpiry: time.Now().Add(time.Hour),
	}

	err := tr.Send(context.Background(), sender, service.OutboundMessage{
		To:       "alice@example.com",
		Subject:  "Hello",
		TextBody: "Body",
	})
	require.NoError(t, err)

	raw, err := base64.URLEncoding.DecodeString(gotRaw)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "To: alice@example.com")
}

func TestTransportSendWithoutCredentials(t *testing.T) {
	tr := NewTransport(Config{}, logger.NewWithWriter(io.Discard))
	err := tr.Send(context.Background(), &model.User{ID: "u1"}, service.OutboundMessage{To: "a@b.c", TextBody: "x"})
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestTransportSendUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"Invalid To header"}}`))
	}))
	defer srv.Close()

	tr := NewTransport(Config{Timeout: time.Second, Endpoint: srv.URL + "/"}, logger.NewWithWriter(io.Discard))
	sender := &model.User{ID: "u1", AccessToken: "t", TokenExpiry: time.Now().Add(time.Hour)}

	err := tr.Send(context.Background(), sender, service.OutboundMessage{To: "a@b.c", TextBody: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid To header")
}

func TestRejectedMessagesDoNotOpenBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Insufficient Permission"}}`))
	}))
	defer srv.Close()

	tr := NewTransport(Config{Timeout: time.Second, Endpoint: srv.URL + "/"}, logger.NewWithWriter(io.Discard))
	sender := &model.User{ID: "u1", AccessToken: "t", TokenExpiry: time.Now().Add(time.Hour)}

	for i := 0; i < 8; i++ {
		err := tr.Send(context.Background(), sender, service.OutboundMessage{To: "a@b.c", TextBody: "x"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, int32(8), calls.Load())
	assert.Equal(t, gobreaker.StateClosed, tr.cb.State())
}

func TestGmailOutageOpensBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"Backend Error"}}`))
	}))
	defer srv.Close()

	tr := NewTransport(Config{Timeout: time.Second, Endpoint: srv.URL + "/"}, logger.NewWithWriter(io.Discard))
	sender := &model.User{ID: "u1", AccessToken: "t", TokenExpiry: time.Now().Add(time.Hour)}

	for i := 0; i < 6; i++ {
		_ = tr.Send(context.Background(), sender, service.OutboundMessage{To: "a@b.c", TextBody: "x"})
	}
	err := tr.Send(context.Background(), sender, service.OutboundMessage{To: "a@b.c", TextBody: "x"})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestIsSenderFault(t *testing.T) {
	assert.True(t, isSenderFault(fmt.Errorf("send: %w", &oauth2.RetrieveError{})))
	assert.True(t, isSenderFault(&googleapi.Error{Code: http.StatusBadRequest}))
	assert.False(t, isSenderFault(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.False(t, isSenderFault(&googleapi.Error{Code: http.StatusInternalServerError}))
	assert.False(t, isSenderFault(errors.New("connection reset")))
}
