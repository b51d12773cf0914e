package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"team_chat/internal/domain"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

type ReactionRepository interface {
	// ListByMessage возвращает строки в порядке вставки
	ListByMessage(ctx context.Context, messageID uuid.UUID) ([]domain.Reaction, error)
	Find(ctx context.Context, messageID, memberID uuid.UUID, value string) (*domain.Reaction, error)
	Create(ctx context.Context, reaction *domain.Reaction) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type reactionRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewReactionRepository(db *pgxpool.Pool, log logger.Logger) ReactionRepository {
	return &reactionRepository{db: db, log: log}
}

func (r *reactionRepository) ListByMessage(ctx context.Context, messageID uuid.UUID) ([]domain.Reaction, error) {
	query := `
		SELECT id, workspace_id, message_id, member_id, value, created_at
		FROM reactions
		WHERE message_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, messageID)
	if err != nil {
		r.log.Error("Failed to list reactions", "error", err, "message_id", messageID)
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	var reactions []domain.Reaction
	for rows.Next() {
		var rc domain.Reaction
		if err := rows.Scan(&rc.ID, &rc.WorkspaceID, &rc.MessageID, &rc.MemberID, &rc.Value, &rc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		reactions = append(reactions, rc)
	}

	return reactions, rows.Err()
}

func (r *reactionRepository) Find(ctx context.Context, messageID, memberID uuid.UUID, value string) (*domain.Reaction, error) {
	query := `
		SELECT id, workspace_id, message_id, member_id, value, created_at
		FROM reactions
		WHERE message_id = $1 AND member_id = $2 AND value = $3
	`

	rc := &domain.Reaction{}
	err := r.db.QueryRow(ctx, query, messageID, memberID, value).Scan(
		&rc.ID, &rc.WorkspaceID, &rc.MessageID, &rc.MemberID, &rc.Value, &rc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find reaction: %w", err)
	}
	return rc, nil
}

func (r *reactionRepository) Create(ctx context.Context, reaction *domain.Reaction) error {
	if reaction.ID == uuid.Nil {
		reaction.ID = uuid.New()
	}
	if reaction.CreatedAt.IsZero() {
		reaction.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO reactions (id, workspace_id, message_id, member_id, value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id, member_id, value) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query,
		reaction.ID, reaction.WorkspaceID, reaction.MessageID, reaction.MemberID, reaction.Value, reaction.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create reaction", "error", err)
		return fmt.Errorf("create reaction: %w", err)
	}
	return nil
}

func (r *reactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM reactions WHERE id = $1`, id); err != nil {
		r.log.Error("Failed to delete reaction", "error", err)
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}
