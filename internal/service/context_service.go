package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shubhojit-Official/Mailto/internal/apperr"
	"github.com/Shubhojit-Official/Mailto/internal/logger"
	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/repository"
)

type contextService struct {
	contextRepo repository.SenderContextRepository
	guard       workspaceGuard
	summarizer  *ContextSummarizer
	logger      *logger.Logger
}

func NewContextService(
	contextRepo repository.SenderContextRepository,
	workspaceRepo repository.WorkspaceRepository,
	summarizer *ContextSummarizer,
	logger *logger.Logger,
) ContextService {
	return &contextService{
		contextRepo: contextRepo,
		guard:       workspaceGuard{repo: workspaceRepo},
		summarizer:  summarizer,
		logger:      logger,
	}
}

// SaveContext summarizes the sender's intent and replaces the workspace's
// context with it. The intent chosen on first save is kept for the life of
// the workspace.
func (s *contextService) SaveContext(ctx context.Context, userID string, in SaveContextInput) (*model.SenderContext, error) {
	intent, err := model.ParseIntent(in.Intent)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	fields, err := model.NewIntentFields(intent, in.Values)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if _, err := s.guard.authorize(ctx, userID, in.WorkspaceID); err != nil {
		return nil, err
	}

	existing, err := s.contextRepo.FindByWorkspaceID(ctx, in.WorkspaceID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		existing = nil
	case err != nil:
		return nil, apperr.Internal("failed to load sender context", err)
	case existing.Intent() != intent:
		return nil, apperr.StateConflict(fmt.Sprintf("workspace intent is %s and cannot be changed to %s", existing.Intent(), intent))
	}

	summary, err := s.summarizer.SummarizeContext(ctx, fields, in.AdditionalNotes)
	if err != nil {
		s.logger.Error("Failed to summarize context for workspace", in.WorkspaceID, err)
		return nil, err
	}

	sc := model.NewSenderContext(in.WorkspaceID, fields, in.AdditionalNotes)
	sc.Summary = summary
	if existing != nil {
		sc.ID = existing.ID
		sc.CreatedAt = existing.CreatedAt
		sc.UpdatedAt = time.Now()
	}

	stored, err := s.contextRepo.Upsert(ctx, sc)
	if err != nil {
		return nil, apperr.Internal("failed to save sender context", err)
	}
	s.logger.Info("Saved", intent, "context for workspace", in.WorkspaceID)
	return stored, nil
}

func (s *contextService) GetContext(ctx context.Context, userID, workspaceID string) (*model.SenderContext, error) {
	if _, err := s.guard.authorize(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	sc, err := s.contextRepo.FindByWorkspaceID(ctx, workspaceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("sender context")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load sender context", err)
	}
	return sc, nil
}
