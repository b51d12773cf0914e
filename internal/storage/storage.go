package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"team_chat/internal/config"
	"team_chat/pkg/logger"
)

// ObjectStore - объектное хранилище вложений
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string) (string, error)
	Remove(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

type minioStore struct {
	client     *minio.Client
	bucket     string
	presignTTL time.Duration
	log        logger.Logger
}

func NewMinioStore(cfg config.StorageConfig, log logger.Logger) (ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &minioStore{
		client:     client,
		bucket:     cfg.Bucket,
		presignTTL: cfg.PresignTTL,
		log:        log,
	}, nil
}

// EnsureBucket создает бакет при первом запуске
func EnsureBucket(ctx context.Context, store ObjectStore) error {
	s, ok := store.(*minioStore)
	if !ok {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.log.Info("Storage bucket created", "bucket", s.bucket)
	return nil
}

func (s *minioStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		s.log.Error("Failed to put object", "error", err, "key", key)
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *minioStore) PresignedURL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignTTL, url.Values{})
	if err != nil {
		s.log.Error("Failed to presign object", "error", err, "key", key)
		return "", fmt.Errorf("presign object: %w", err)
	}
	return u.String(), nil
}

func (s *minioStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		s.log.Error("Failed to remove object", "error", err, "key", key)
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (s *minioStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// ObjectKey - ключ объекта для идентификатора загрузки
func ObjectKey(storageID string) string {
	return "uploads/" + storageID
}
