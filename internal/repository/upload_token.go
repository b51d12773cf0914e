package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

// UploadGrant - то, что выдается вместе с одноразовым URL загрузки
type UploadGrant struct {
	UserID    uuid.UUID `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UploadTokenRepository interface {
	Save(ctx context.Context, token string, grant UploadGrant, ttl time.Duration) error
	// Consume атомарно забирает токен: второй вызов вернет ErrUploadTokenInvalid
	Consume(ctx context.Context, token string) (*UploadGrant, error)
}

type uploadTokenRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewUploadTokenRepository(redis *redis.Client, log logger.Logger) UploadTokenRepository {
	return &uploadTokenRepository{redis: redis, log: log}
}

func uploadTokenKey(token string) string {
	return "upload_token:" + token
}

func (r *uploadTokenRepository) Save(ctx context.Context, token string, grant UploadGrant, ttl time.Duration) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("marshal upload grant: %w", err)
	}

	if err := r.redis.Set(ctx, uploadTokenKey(token), data, ttl).Err(); err != nil {
		r.log.Error("Failed to save upload token", "error", err)
		return fmt.Errorf("save upload token: %w", err)
	}
	return nil
}

func (r *uploadTokenRepository) Consume(ctx context.Context, token string) (*UploadGrant, error) {
	data, err := r.redis.GetDel(ctx, uploadTokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrUploadTokenInvalid
	}
	if err != nil {
		r.log.Error("Failed to consume upload token", "error", err)
		return nil, fmt.Errorf("consume upload token: %w", err)
	}

	var grant UploadGrant
	if err := json.Unmarshal(data, &grant); err != nil {
		r.log.Warn("Corrupted upload token payload", "error", err)
		return nil, apperrors.ErrUploadTokenInvalid
	}
	return &grant, nil
}
