package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"team_chat/internal/domain"
	"team_chat/internal/repository"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

const (
	workspaceNameMin = 3
	workspaceNameMax = 80
)

type WorkspaceService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error)
	GetInfoByID(ctx context.Context, id uuid.UUID) (*domain.WorkspaceInfo, error)
	Update(ctx context.Context, id uuid.UUID, name string) (uuid.UUID, error)
}

type workspaceService struct {
	workspaces repository.WorkspaceRepository
	audit      AuditService
	log        logger.Logger
}

func NewWorkspaceService(workspaces repository.WorkspaceRepository, audit AuditService, log logger.Logger) WorkspaceService {
	return &workspaceService{
		workspaces: workspaces,
		audit:      audit,
		log:        log,
	}
}

func (s *workspaceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	member, err := lookupMember(ctx, s.workspaces, id)
	if err != nil || member == nil {
		return nil, err
	}

	ws, err := s.workspaces.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ws, nil
}

// GetInfoByID доступен и не участникам: имя нужно для экрана приглашения
func (s *workspaceService) GetInfoByID(ctx context.Context, id uuid.UUID) (*domain.WorkspaceInfo, error) {
	if _, ok := Identity(ctx); !ok {
		return nil, nil
	}

	ws, err := s.workspaces.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	member, err := lookupMember(ctx, s.workspaces, id)
	if err != nil {
		return nil, err
	}

	return &domain.WorkspaceInfo{Name: ws.Name, IsMember: member != nil}, nil
}

func (s *workspaceService) Update(ctx context.Context, id uuid.UUID, name string) (uuid.UUID, error) {
	member, err := requireMember(ctx, s.workspaces, id)
	if err != nil {
		return uuid.Nil, err
	}
	if member.Role != domain.MemberRoleAdmin {
		return uuid.Nil, apperrors.ErrUnauthorized
	}

	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < workspaceNameMin || n > workspaceNameMax {
		return uuid.Nil, fmt.Errorf("%w: name must be %d to %d characters", apperrors.ErrBadRequest, workspaceNameMin, workspaceNameMax)
	}

	if err := s.workspaces.UpdateName(ctx, id, name); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return uuid.Nil, apperrors.ErrWorkspaceNotFound
		}
		return uuid.Nil, err
	}

	payload := map[string]interface{}{"name": name}
	if err := s.audit.LogEvent(ctx, &member.UserID, &member.ID, &id, domain.EventTypeWorkspaceUpdated, payload); err != nil {
		s.log.Warn("Failed to write audit log", "event", domain.EventTypeWorkspaceUpdated, "error", err)
	}

	return id, nil
}
