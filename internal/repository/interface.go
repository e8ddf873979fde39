package repository

import (
	"context"
	"errors"

	"github.com/Shubhojit-Official/Mailto/internal/model"
)

// ErrNotFound is returned by every Find* when nothing matches.
var ErrNotFound = errors.New("record not found")

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

// WorkspaceRepository defines the interface for workspace data operations
type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *model.Workspace) error
	FindByID(ctx context.Context, id string) (*model.Workspace, error)
	FindByOwnerID(ctx context.Context, ownerID string) ([]*model.Workspace, error)
	Delete(ctx context.Context, id string) error
}

// SenderContextRepository keeps at most one context per workspace.
type SenderContextRepository interface {
	// Upsert inserts or replaces the context of ctx.WorkspaceID in a single
	// atomic write and returns the stored record.
	Upsert(ctx context.Context, senderContext *model.SenderContext) (*model.SenderContext, error)
	FindByWorkspaceID(ctx context.Context, workspaceID string) (*model.SenderContext, error)
}

// RecipientRepository defines the interface for recipient data operations
type RecipientRepository interface {
	Create(ctx context.Context, recipient *model.Recipient) error
	FindByID(ctx context.Context, id string) (*model.Recipient, error)
	FindByWorkspaceID(ctx context.Context, workspaceID string) ([]*model.Recipient, error)
	Delete(ctx context.Context, id string) error
}

// EmailRepository defines the interface for email data operations
type EmailRepository interface {
	Create(ctx context.Context, email *model.Email) error
	FindByID(ctx context.Context, id string) (*model.Email, error)
	// FindByWorkspaceID returns newest first.
	FindByWorkspaceID(ctx context.Context, workspaceID string) ([]*model.Email, error)
	// FindActive returns the draft or failed email of a recipient, if any.
	FindActive(ctx context.Context, workspaceID, recipientID string) (*model.Email, error)
	Update(ctx context.Context, email *model.Email) error
}
