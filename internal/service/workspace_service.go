package service

import (
	"context"
	"errors"

	"github.com/Shubhojit-Official/Mailto/internal/apperr"
	"github.com/Shubhojit-Official/Mailto/internal/logger"
	"github.com/Shubhojit-Official/Mailto/internal/model"
	"github.com/Shubhojit-Official/Mailto/internal/repository"
)

// workspaceGuard resolves a workspace for its owner. Missing and foreign
// workspaces produce the same error.
type workspaceGuard struct {
	repo repository.WorkspaceRepository
}

func (g workspaceGuard) authorize(ctx context.Context, userID, workspaceID string) (*model.Workspace, error) {
	if workspaceID == "" {
		return nil, apperr.Validation("workspaceId is required")
	}
	ws, err := g.repo.FindByID(ctx, workspaceID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized("workspace")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load workspace", err)
	}
	if !ws.OwnedBy(userID) {
		return nil, apperr.Unauthorized("workspace")
	}
	return ws, nil
}

type workspaceService struct {
	workspaceRepo repository.WorkspaceRepository
	guard         workspaceGuard
	logger        *logger.Logger
}

func NewWorkspaceService(workspaceRepo repository.WorkspaceRepository, logger *logger.Logger) WorkspaceService {
	return &workspaceService{
		workspaceRepo: workspaceRepo,
		guard:         workspaceGuard{repo: workspaceRepo},
		logger:        logger,
	}
}

func (s *workspaceService) CreateWorkspace(ctx context.Context, userID, name, color string) (*model.Workspace, error) {
	c, err := model.ParseColor(color)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	ws, err := model.NewWorkspace(userID, name, c)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if err := s.workspaceRepo.Create(ctx, ws); err != nil {
		return nil, apperr.Internal("failed to create workspace", err)
	}
	s.logger.Info("Created workspace:", ws.ID, "for user:", userID)
	return ws, nil
}

func (s *workspaceService) GetWorkspace(ctx context.Context, userID, workspaceID string) (*model.Workspace, error) {
	return s.guard.authorize(ctx, userID, workspaceID)
}

func (s *workspaceService) ListWorkspaces(ctx context.Context, userID string) ([]*model.Workspace, error) {
	list, err := s.workspaceRepo.FindByOwnerID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list workspaces", err)
	}
	return list, nil
}

// DeleteWorkspace removes only the workspace record; its contents are the
// caller's to clean up.
func (s *workspaceService) DeleteWorkspace(ctx context.Context, userID, workspaceID string) error {
	if _, err := s.guard.authorize(ctx, userID, workspaceID); err != nil {
		return err
	}
	if err := s.workspaceRepo.Delete(ctx, workspaceID); err != nil {
		return apperr.Internal("failed to delete workspace", err)
	}
	s.logger.Info("Deleted workspace:", workspaceID)
	return nil
}
