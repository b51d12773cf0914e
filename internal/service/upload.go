package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"team_chat/internal/config"
	"team_chat/internal/domain"
	"team_chat/internal/repository"
	"team_chat/internal/storage"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

type UploadService interface {
	// GenerateUploadURL выдает одноразовый URL для загрузки файла
	GenerateUploadURL(ctx context.Context) (string, error)
	// Upload принимает файл по токену и возвращает идентификатор в хранилище.
	// size < 0 означает, что размер заранее неизвестен.
	Upload(ctx context.Context, token, contentType string, size int64, body io.Reader) (string, error)
	ResolveURL(ctx context.Context, storageID string) (string, error)
}

type uploadService struct {
	tokens   repository.UploadTokenRepository
	uploads  repository.UploadRepository
	objects  storage.ObjectStore
	cfg      config.StorageConfig
	uploaded prometheus.Counter
	log      logger.Logger
	now      func() time.Time
}

func NewUploadService(repos *repository.Repositories, objects storage.ObjectStore, cfg config.StorageConfig, uploaded prometheus.Counter, log logger.Logger) UploadService {
	return &uploadService{
		tokens:   repos.UploadToken,
		uploads:  repos.Upload,
		objects:  objects,
		cfg:      cfg,
		uploaded: uploaded,
		log:      log,
		now:      time.Now,
	}
}

func (s *uploadService) GenerateUploadURL(ctx context.Context) (string, error) {
	userID, ok := Identity(ctx)
	if !ok {
		return "", apperrors.ErrUnauthorized
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
	now := s.now()
	grant := repository.UploadGrant{
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.UploadTokenTTL),
	}
	if err := s.tokens.Save(ctx, token, grant, s.cfg.UploadTokenTTL); err != nil {
		return "", err
	}

	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/api/v1/upload/" + token, nil
}

func (s *uploadService) Upload(ctx context.Context, token, contentType string, size int64, body io.Reader) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedMedia, contentType)
	}
	if size > s.cfg.MaxUploadBytes {
		return "", s.tooLarge()
	}

	grant, err := s.tokens.Consume(ctx, token)
	if err != nil {
		return "", err
	}

	// без Content-Length читаем в память с ограничением
	if size < 0 {
		buf := &bytes.Buffer{}
		n, err := io.Copy(buf, io.LimitReader(body, s.cfg.MaxUploadBytes+1))
		if err != nil {
			return "", fmt.Errorf("read upload: %w", err)
		}
		if n > s.cfg.MaxUploadBytes {
			return "", s.tooLarge()
		}
		body, size = buf, n
	}

	storageID := uuid.NewString()
	if err := s.objects.Put(ctx, storage.ObjectKey(storageID), body, size, mediaType); err != nil {
		return "", err
	}

	upload := &domain.Upload{
		StorageID:   storageID,
		UserID:      grant.UserID,
		ContentType: mediaType,
		Size:        size,
		CreatedAt:   s.now(),
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		if rmErr := s.objects.Remove(ctx, storage.ObjectKey(storageID)); rmErr != nil {
			s.log.Warn("Failed to remove object after failed upload", "storage_id", storageID, "error", rmErr)
		}
		return "", err
	}

	if s.uploaded != nil {
		s.uploaded.Add(float64(size))
	}
	s.log.Info("File uploaded", "storage_id", storageID, "user_id", grant.UserID, "size", humanize.Bytes(uint64(size)))

	return storageID, nil
}

func (s *uploadService) ResolveURL(ctx context.Context, storageID string) (string, error) {
	if _, err := s.uploads.Get(ctx, storageID); err != nil {
		return "", err
	}
	return s.objects.PresignedURL(ctx, storage.ObjectKey(storageID))
}

func (s *uploadService) tooLarge() error {
	return fmt.Errorf("%w: file exceeds %s", apperrors.ErrTooLarge, humanize.IBytes(uint64(s.cfg.MaxUploadBytes)))
}
