package service

import (
	"context"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/model"
)

type AuthService interface {
	GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
	IssueToken(user *model.User) (string, error)
	VerifyToken(token string) (string, error)
}

type WorkspaceService interface {
	CreateWorkspace(ctx context.Context, userID, name, color string) (*model.Workspace, error)
	GetWorkspace(ctx context.Context, userID, workspaceID string) (*model.Workspace, error)
	ListWorkspaces(ctx context.Context, userID string) ([]*model.Workspace, error)
	DeleteWorkspace(ctx context.Context, userID, workspaceID string) error
}

type CreateRecipientInput struct {
	WorkspaceID string
	Handle      string
	Email       string
	Name        string
}

type RecipientService interface {
	CreateRecipient(ctx context.Context, userID string, in CreateRecipientInput) (*model.Recipient, error)
	ListRecipients(ctx context.Context, userID, workspaceID string) ([]*model.Recipient, error)
	DeleteRecipient(ctx context.Context, userID, recipientID string) error
}

type SaveContextInput struct {
	WorkspaceID     string
	Intent          string
	Values          map[string]string
	AdditionalNotes string
}

type ContextService interface {
	SaveContext(ctx context.Context, userID string, in SaveContextInput) (*model.SenderContext, error)
	GetContext(ctx context.Context, userID, workspaceID string) (*model.SenderContext, error)
}

type GenerateEmailInput struct {
	WorkspaceID string
	RecipientID string
	Tone        model.Tone
}

// SaveDraftInput creates a draft when EmailID is empty. On update, nil
// fields keep their stored value.
type SaveDraftInput struct {
	EmailID     string
	WorkspaceID string
	RecipientID string
	Subject     *string
	Body        *string
}

type EmailService interface {
	GenerateEmail(ctx context.Context, userID string, in GenerateEmailInput) (*model.Email, error)
	SaveDraft(ctx context.Context, userID string, in SaveDraftInput) (*model.Email, error)
	SendEmail(ctx context.Context, userID, emailID string) (*model.Email, error)
	MarkOpened(ctx context.Context, userID, emailID string) (*model.Email, error)
	MarkReplied(ctx context.Context, userID, emailID string) (*model.Email, error)
	GetEmail(ctx context.Context, userID, emailID string) (*model.Email, error)
	ListEmails(ctx context.Context, userID, workspaceID string) ([]*model.Email, error)
}

// TextGenerator is the generative-AI capability shared by every prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProfileFetcher returns recent public posts of a social handle.
type ProfileFetcher interface {
	FetchRecentPosts(ctx context.Context, handle string, count int) ([]string, error)
}

// OutboundMessage is what the mail transport delivers.
type OutboundMessage struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// MailTransport delivers a message from the sender's own mailbox.
type MailTransport interface {
	Send(ctx context.Context, sender *model.User, msg OutboundMessage) error
}

// Notifier pushes events to a user's open connections.
type Notifier interface {
	BroadcastToUser(userID string, eventType string, data interface{})
}
