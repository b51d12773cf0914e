package domain

import (
	"time"

	"github.com/google/uuid"
)

// Upload - файл, загруженный в объектное хранилище по одноразовому URL
type Upload struct {
	StorageID   string     `json:"storage_id"`
	UserID      uuid.UUID  `json:"user_id"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
	CreatedAt   time.Time  `json:"created_at"`
	AttachedAt  *time.Time `json:"attached_at,omitempty"`
}
