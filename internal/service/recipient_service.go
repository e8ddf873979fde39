package service

import (
	"context"
	"errors"

	"github.com/Shubhojit-Official/Mailto/internal/apperr"
	"github.com/Shubhojit-Official/Mailto/internal/logger"
	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/repository"
)

type recipientService struct {
	recipientRepo repository.RecipientRepository
	guard         workspaceGuard
	fetcher       ProfileFetcher
	summarizer    *PersonalitySummarizer
	postCount     int
	logger        *logger.Logger
}

func NewRecipientService(
	recipientRepo repository.RecipientRepository,
	workspaceRepo repository.WorkspaceRepository,
	fetcher ProfileFetcher,
	summarizer *PersonalitySummarizer,
	postCount int,
	logger *logger.Logger,
) RecipientService {
	if postCount <= 0 {
		postCount = 12
	}
	return &recipientService{
		recipientRepo: recipientRepo,
		guard:         workspaceGuard{repo: workspaceRepo},
		fetcher:       fetcher,
		summarizer:    summarizer,
		postCount:     postCount,
		logger:        logger,
	}
}

// CreateRecipient enriches the recipient with a profile snapshot when posts
// can be fetched. Fetch problems only cost the snapshot; a summarizer error
// fails the request and nothing is stored.
func (s *recipientService) CreateRecipient(ctx context.Context, userID string, in CreateRecipientInput) (*model.Recipient, error) {
	if in.Handle == "" || in.WorkspaceID == "" {
		return nil, apperr.Validation("handle and workspaceId are required")
	}
	handle, err := model.NormalizeHandle(in.Handle)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	address, err := model.NormalizeAddress(in.Email)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if _, err := s.guard.authorize(ctx, userID, in.WorkspaceID); err != nil {
		return nil, err
	}

	posts := s.fetchPosts(ctx, handle)

	snapshot, err := s.summarizer.Summarize(ctx, posts)
	if err != nil {
		s.logger.Error("Failed to summarize profile of", handle, err)
		return nil, err
	}

	recipient := model.NewRecipient(in.WorkspaceID, handle, address, in.Name, snapshot)
	if err := s.recipientRepo.Create(ctx, recipient); err != nil {
		return nil, apperr.Internal("failed to save recipient", err)
	}
	s.logger.Info("Created recipient:", recipient.ID, "handle:", handle, "insight:", snapshot != nil)
	return recipient, nil
}

// fetchPosts never fails; an unreachable provider means no insight.
func (s *recipientService) fetchPosts(ctx context.Context, handle string) []string {
	if s.fetcher == nil {
		return nil
	}
	posts, err := s.fetcher.FetchRecentPosts(ctx, handle, s.postCount)
	if err != nil {
		s.logger.Warn("Profile insight unavailable for", handle, apperr.UpstreamUnavailable("profile provider", err))
		return nil
	}
	if len(posts) > s.postCount {
		posts = posts[:s.postCount]
	}
	return posts
}

func (s *recipientService) ListRecipients(ctx context.Context, userID, workspaceID string) ([]*model.Recipient, error) {
	if _, err := s.guard.authorize(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	list, err := s.recipientRepo.FindByWorkspaceID(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Internal("failed to list recipients", err)
	}
	return list, nil
}

func (s *recipientService) DeleteRecipient(ctx context.Context, userID, recipientID string) error {
	if _, err := s.loadOwnedRecipient(ctx, userID, recipientID); err != nil {
		return err
	}
	if err := s.recipientRepo.Delete(ctx, recipientID); err != nil {
		return apperr.Internal("failed to delete recipient", err)
	}
	return nil
}

func (s *recipientService) loadOwnedRecipient(ctx context.Context, userID, recipientID string) (*model.Recipient, error) {
	return loadOwnedRecipient(ctx, s.recipientRepo, s.guard, userID, recipientID)
}

// loadOwnedRecipient reports a recipient outside the caller's workspaces as
// not found.
func loadOwnedRecipient(ctx context.Context, repo repository.RecipientRepository, guard workspaceGuard, userID, recipientID string) (*model.Recipient, error) {
	if recipientID == "" {
		return nil, apperr.Validation("recipientId is required")
	}
	recipient, err := repo.FindByID(ctx, recipientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFoundOrUnauthorized("recipient")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load recipient", err)
	}
	if _, err := guard.authorize(ctx, userID, recipient.WorkspaceID); err != nil {
		if apperr.IsKind(err, apperr.KindAuthorization) {
			return nil, apperr.NotFoundOrUnauthorized("recipient")
		}
		return nil, err
	}
	return recipient, nil
}
