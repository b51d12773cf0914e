package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"team_chat/internal/domain"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

type WorkspaceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
	// GetMember - поиск по уникальному индексу (workspace_id, user_id)
	GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Member, error)
	GetMemberByID(ctx context.Context, memberID uuid.UUID) (*domain.Member, error)
	GetChannel(ctx context.Context, channelID uuid.UUID) (*domain.Channel, error)
	GetConversation(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error)
}

type workspaceRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewWorkspaceRepository(db *pgxpool.Pool, log logger.Logger) WorkspaceRepository {
	return &workspaceRepository{db: db, log: log}
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func (r *workspaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	query := `SELECT id, name, user_id, join_code, created_at FROM workspaces WHERE id = $1`

	ws := &domain.Workspace{}
	err := r.db.QueryRow(ctx, query, id).Scan(&ws.ID, &ws.Name, &ws.UserID, &ws.JoinCode, &ws.CreatedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.log.Error("Failed to get workspace", "error", err, "workspace_id", id)
		}
		return nil, notFoundOr(err, "workspace")
	}

	return ws, nil
}

func (r *workspaceRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := r.db.Exec(ctx, `UPDATE workspaces SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		r.log.Error("Failed to update workspace", "error", err, "workspace_id", id)
		return fmt.Errorf("update workspace: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *workspaceRepository) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.Member, error) {
	query := `
		SELECT id, workspace_id, user_id, role, created_at
		FROM members
		WHERE workspace_id = $1 AND user_id = $2
	`

	member := &domain.Member{}
	err := r.db.QueryRow(ctx, query, workspaceID, userID).Scan(
		&member.ID, &member.WorkspaceID, &member.UserID, &member.Role, &member.CreatedAt,
	)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.log.Error("Failed to get member", "error", err, "workspace_id", workspaceID)
		}
		return nil, notFoundOr(err, "member")
	}

	return member, nil
}

func (r *workspaceRepository) GetMemberByID(ctx context.Context, memberID uuid.UUID) (*domain.Member, error) {
	query := `SELECT id, workspace_id, user_id, role, created_at FROM members WHERE id = $1`

	member := &domain.Member{}
	err := r.db.QueryRow(ctx, query, memberID).Scan(
		&member.ID, &member.WorkspaceID, &member.UserID, &member.Role, &member.CreatedAt,
	)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.log.Error("Failed to get member by ID", "error", err, "member_id", memberID)
		}
		return nil, notFoundOr(err, "member")
	}

	return member, nil
}

func (r *workspaceRepository) GetChannel(ctx context.Context, channelID uuid.UUID) (*domain.Channel, error) {
	query := `SELECT id, workspace_id, name, created_at FROM channels WHERE id = $1`

	ch := &domain.Channel{}
	err := r.db.QueryRow(ctx, query, channelID).Scan(&ch.ID, &ch.WorkspaceID, &ch.Name, &ch.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "channel")
	}
	return ch, nil
}

func (r *workspaceRepository) GetConversation(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, error) {
	query := `SELECT id, workspace_id, member_one_id, member_two_id, created_at FROM conversations WHERE id = $1`

	conv := &domain.Conversation{}
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&conv.ID, &conv.WorkspaceID, &conv.MemberOneID, &conv.MemberTwoID, &conv.CreatedAt,
	)
	if err != nil {
		return nil, notFoundOr(err, "conversation")
	}
	return conv, nil
}
