package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"team_chat/internal/domain"
	"team_chat/internal/repository"
	apperrors "team_chat/pkg/errors"
)

type identityKey struct{}

// WithIdentity кладет в контекст идентификатор вызывающего пользователя
func WithIdentity(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, identityKey{}, userID)
}

// Identity возвращает пользователя из контекста
func Identity(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(identityKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetMember ищет членство пользователя в пространстве.
// Отсутствие членства возвращается как (nil, nil).
func GetMember(ctx context.Context, workspaces repository.WorkspaceRepository, workspaceID, userID uuid.UUID) (*domain.Member, error) {
	member, err := workspaces.GetMember(ctx, workspaceID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return member, nil
}

// requireMember - проверка для мутаций: нет пользователя или членства -> ErrUnauthorized
func requireMember(ctx context.Context, workspaces repository.WorkspaceRepository, workspaceID uuid.UUID) (*domain.Member, error) {
	userID, ok := Identity(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}
	member, err := GetMember(ctx, workspaces, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return member, nil
}

// lookupMember - проверка для запросов: отсутствие доступа дает (nil, nil)
func lookupMember(ctx context.Context, workspaces repository.WorkspaceRepository, workspaceID uuid.UUID) (*domain.Member, error) {
	userID, ok := Identity(ctx)
	if !ok {
		return nil, nil
	}
	return GetMember(ctx, workspaces, workspaceID, userID)
}
