package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"team_chat/internal/domain"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

type UploadRepository interface {
	Create(ctx context.Context, upload *domain.Upload) error
	Get(ctx context.Context, storageID string) (*domain.Upload, error)
	// Attach атомарно закрепляет загрузку за сообщением.
	// Уже прикрепленная загрузка дает ErrUploadAttached, удаленная - ErrUploadNotFound.
	Attach(ctx context.Context, storageID string, at time.Time) error
	Detach(ctx context.Context, storageID string) error
	// ListOrphans - загрузки, которые так и не прикрепили к сообщению
	ListOrphans(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Upload, error)
	// DeleteOrphan удаляет строку, только если она все еще не прикреплена
	DeleteOrphan(ctx context.Context, storageID string) (bool, error)
	Delete(ctx context.Context, storageID string) error
}

type uploadRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewUploadRepository(db *pgxpool.Pool, log logger.Logger) UploadRepository {
	return &uploadRepository{db: db, log: log}
}

func (r *uploadRepository) Create(ctx context.Context, upload *domain.Upload) error {
	query := `
		INSERT INTO uploads (storage_id, user_id, content_type, size, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(ctx, query, upload.StorageID, upload.UserID, upload.ContentType, upload.Size, upload.CreatedAt)
	if err != nil {
		r.log.Error("Failed to create upload", "error", err, "storage_id", upload.StorageID)
		return fmt.Errorf("create upload: %w", err)
	}
	return nil
}

func (r *uploadRepository) Get(ctx context.Context, storageID string) (*domain.Upload, error) {
	query := `
		SELECT storage_id, user_id, content_type, size, created_at, attached_at
		FROM uploads
		WHERE storage_id = $1
	`

	u := &domain.Upload{}
	err := r.db.QueryRow(ctx, query, storageID).Scan(&u.StorageID, &u.UserID, &u.ContentType, &u.Size, &u.CreatedAt, &u.AttachedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUploadNotFound
		}
		return nil, fmt.Errorf("get upload: %w", err)
	}
	return u, nil
}

func (r *uploadRepository) Attach(ctx context.Context, storageID string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE uploads SET attached_at = $2 WHERE storage_id = $1 AND attached_at IS NULL`, storageID, at)
	if err != nil {
		r.log.Error("Failed to attach upload", "error", err, "storage_id", storageID)
		return fmt.Errorf("attach upload: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM uploads WHERE storage_id = $1)`, storageID).Scan(&exists); err != nil {
		return fmt.Errorf("attach upload: %w", err)
	}
	if !exists {
		return apperrors.ErrUploadNotFound
	}
	return apperrors.ErrUploadAttached
}

func (r *uploadRepository) Detach(ctx context.Context, storageID string) error {
	if _, err := r.db.Exec(ctx, `UPDATE uploads SET attached_at = NULL WHERE storage_id = $1`, storageID); err != nil {
		r.log.Error("Failed to detach upload", "error", err, "storage_id", storageID)
		return fmt.Errorf("detach upload: %w", err)
	}
	return nil
}

func (r *uploadRepository) ListOrphans(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Upload, error) {
	query := `
		SELECT storage_id, user_id, content_type, size, created_at, attached_at
		FROM uploads
		WHERE attached_at IS NULL AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, createdBefore, limit)
	if err != nil {
		r.log.Error("Failed to list orphan uploads", "error", err)
		return nil, fmt.Errorf("list orphan uploads: %w", err)
	}
	defer rows.Close()

	var uploads []*domain.Upload
	for rows.Next() {
		u := &domain.Upload{}
		if err := rows.Scan(&u.StorageID, &u.UserID, &u.ContentType, &u.Size, &u.CreatedAt, &u.AttachedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

func (r *uploadRepository) DeleteOrphan(ctx context.Context, storageID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM uploads WHERE storage_id = $1 AND attached_at IS NULL`, storageID)
	if err != nil {
		r.log.Error("Failed to delete orphan upload", "error", err, "storage_id", storageID)
		return false, fmt.Errorf("delete orphan upload: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *uploadRepository) Delete(ctx context.Context, storageID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM uploads WHERE storage_id = $1`, storageID); err != nil {
		r.log.Error("Failed to delete upload", "error", err, "storage_id", storageID)
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}
