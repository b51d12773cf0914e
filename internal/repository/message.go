package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"team_chat/internal/domain"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	UpdateBody(ctx context.Context, id uuid.UUID, body string, updatedAt time.Time) error
	// DeleteCascade удаляет сообщение, его прямые ответы и их реакции
	DeleteCascade(ctx context.Context, id uuid.UUID) (*CascadeResult, error)
	ListFeed(ctx context.Context, key domain.FeedKey, cursor *domain.MessageCursor, limit int) ([]*domain.Message, error)
	ListReplies(ctx context.Context, parentID uuid.UUID) ([]*domain.Message, error)
	SearchBody(ctx context.Context, workspaceID uuid.UUID, text string, limit int) ([]*domain.Message, error)
}

// CascadeResult - что было удалено вместе с сообщением
type CascadeResult struct {
	MessageIDs []uuid.UUID
	Images     []string
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

const messageColumns = `id, workspace_id, channel_id, conversation_id, parent_message_id, member_id, body, image, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	m := &domain.Message{}
	err := row.Scan(
		&m.ID, &m.WorkspaceID, &m.ChannelID, &m.ConversationID, &m.ParentMessageID,
		&m.MemberID, &m.Body, &m.Image, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, workspace_id, channel_id, conversation_id, parent_message_id, member_id, body, image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	err := r.db.QueryRow(ctx, query,
		message.ID, message.WorkspaceID, message.ChannelID, message.ConversationID,
		message.ParentMessageID, message.MemberID, message.Body, message.Image, message.CreatedAt,
	).Scan(&message.CreatedAt)
	if err != nil {
		r.log.Error("Failed to create message", "error", err)
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	message, err := scanMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get message", "error", err, "message_id", id)
		return nil, fmt.Errorf("get message: %w", err)
	}

	return message, nil
}

func (r *messageRepository) UpdateBody(ctx context.Context, id uuid.UUID, body string, updatedAt time.Time) error {
	query := `
		UPDATE messages
		SET body = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, body, updatedAt)
	if err != nil {
		r.log.Error("Failed to update message", "error", err, "message_id", id)
		return fmt.Errorf("update message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *messageRepository) DeleteCascade(ctx context.Context, id uuid.UUID) (*CascadeResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin delete tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `SELECT id, image FROM messages WHERE id = $1 OR parent_message_id = $1`, id)
	if err != nil {
		r.log.Error("Failed to collect messages for deletion", "error", err, "message_id", id)
		return nil, fmt.Errorf("collect messages: %w", err)
	}

	var ids []uuid.UUID
	var images []string
	for rows.Next() {
		var mid uuid.UUID
		var image *string
		if err := rows.Scan(&mid, &image); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan message for deletion: %w", err)
		}
		ids = append(ids, mid)
		if image != nil && *image != "" {
			images = append(images, *image)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect messages: %w", err)
	}
	if len(ids) == 0 {
		return nil, apperrors.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM reactions WHERE message_id = ANY($1::uuid[])`, ids); err != nil {
		r.log.Error("Failed to delete reactions", "error", err, "message_id", id)
		return nil, fmt.Errorf("delete reactions: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE id = ANY($1::uuid[])`, ids); err != nil {
		r.log.Error("Failed to delete messages", "error", err, "message_id", id)
		return nil, fmt.Errorf("delete messages: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit delete tx: %w", err)
	}

	return &CascadeResult{MessageIDs: ids, Images: images}, nil
}

// ListFeed читает составной индекс (channel_id, parent_message_id, conversation_id)
// от новых к старым. Пустой идентификатор означает IS NULL, как в исходном индексе.
func (r *messageRepository) ListFeed(ctx context.Context, key domain.FeedKey, cursor *domain.MessageCursor, limit int) ([]*domain.Message, error) {
	var (
		conds []string
		args  []any
	)
	addEq := func(column string, value *uuid.UUID) {
		if value == nil {
			conds = append(conds, column+" IS NULL")
			return
		}
		args = append(args, *value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addEq("channel_id", key.ChannelID)
	addEq("parent_message_id", key.ParentMessageID)
	addEq("conversation_id", key.ConversationID)

	if cursor != nil {
		args = append(args, cursor.CreatedAt, cursor.ID)
		conds = append(conds, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, limit)

	query := `SELECT ` + messageColumns + ` FROM messages WHERE ` + strings.Join(conds, " AND ") +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list feed", "error", err)
		return nil, fmt.Errorf("list feed: %w", err)
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0, limit)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

func (r *messageRepository) ListReplies(ctx context.Context, parentID uuid.UUID) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE parent_message_id = $1`

	rows, err := r.db.Query(ctx, query, parentID)
	if err != nil {
		r.log.Error("Failed to list replies", "error", err, "parent_message_id", parentID)
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

// SearchBody - запасной поиск, когда поисковый индекс недоступен
func (r *messageRepository) SearchBody(ctx context.Context, workspaceID uuid.UUID, text string, limit int) ([]*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE workspace_id = $1 AND body ILIKE '%' || $2 || '%'
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, workspaceID, escapeLike(text), limit)
	if err != nil {
		r.log.Error("Failed to search messages", "error", err)
		return nil, fmt.Errorf("search messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
