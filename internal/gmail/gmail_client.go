package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/breaker"
	"github.com/Shubhojit-Official/Mailto/internal/logger"
	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/service"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var ErrNoCredentials = errors.New("sender has no Gmail credentials")

// isSenderFault reports failures tied to one sender or one message: a
// revoked or expired grant, a rejected address. They say nothing about
// Gmail's health.
func isSenderFault(err error) bool {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return true
	}
	var ge *googleapi.Error
	return errors.As(err, &ge) &&
		ge.Code >= 400 && ge.Code < 500 && ge.Code != http.StatusTooManyRequests
}

type Config struct {
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	// Endpoint overrides the Gmail API base path.
	Endpoint string
}

// Transport sends mail from each user's own Gmail account, refreshing the
// stored OAuth token when it has expired.
type Transport struct {
	oauth    *oauth2.Config
	timeout  time.Duration
	endpoint string
	cb       *gobreaker.CircuitBreaker
	logger   *logger.Logger
}

func NewTransport(cfg Config, logger *logger.Logger) *Transport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Transport{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmail.GmailSendScope},
		},
		timeout:  timeout,
		endpoint: cfg.Endpoint,
		cb:       breaker.New("gmail-send", logger, isSenderFault),
		logger:   logger,
	}
}

func (t *Transport) Send(ctx context.Context, sender *model.User, msg service.OutboundMessage) error {
	if sender == nil || !sender.CanSendMail() {
		return ErrNoCredentials
	}

	raw, err := BuildMessage(sender.Email, msg)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	svc, err := t.service(ctx, sender)
	if err != nil {
		return fmt.Errorf("failed to create Gmail service: %w", err)
	}

	gmailMsg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	out, err := t.cb.Execute(func() (interface{}, error) {
		return svc.Users.Messages.Send("me", gmailMsg).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	t.logger.Info("Gmail accepted message", out.(*gmail.Message).Id, "for user", sender.ID)
	return nil
}

func (t *Transport) service(ctx context.Context, sender *model.User) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  sender.AccessToken,
		RefreshToken: sender.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       sender.TokenExpiry,
	}
	opts := []option.ClientOption{option.WithTokenSource(t.oauth.TokenSource(ctx, token))}
	if t.endpoint != "" {
		opts = append(opts, option.WithEndpoint(t.endpoint))
	}
	return gmail.NewService(ctx, opts...)
}

// BuildMessage renders an RFC 822 message with plain-text and HTML
// alternatives.
func BuildMessage(from string, msg service.OutboundMessage) ([]byte, error) {
	to := headerValue(msg.To)
	if to == "" {
		return nil, errors.New("recipient address is required")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.TextBody},
		{"text/html; charset=UTF-8", msg.HTMLBody},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(wrapBase64(p.content))); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if from = headerValue(from); from != "" {
		fmt.Fprintf(&buf, "From: %s\r\n", from)
	}
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", headerValue(msg.Subject)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n", mw.Boundary())
	buf.WriteString("\r\n")
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

// headerValue drops line breaks so a value cannot start a new header.
func headerValue(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
}

func wrapBase64(s string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(s))
	var sb strings.Builder
	for len(enc) > 76 {
		sb.WriteString(enc[:76])
		sb.WriteString("\r\n")
		enc = enc[76:]
	}
	sb.WriteString(enc)
	return sb.String()
}
