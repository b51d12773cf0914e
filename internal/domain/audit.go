package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID            int64                  `json:"id"`
	EventTime     time.Time              `json:"event_time"`
	ActorUserID   *uuid.UUID             `json:"actor_user_id,omitempty"`
	ActorMemberID *uuid.UUID             `json:"actor_member_id,omitempty"`
	WorkspaceID   *uuid.UUID             `json:"workspace_id,omitempty"`
	EventType     string                 `json:"event_type"`
	Payload       map[string]interface{} `json:"payload"`
}

const (
	EventTypeMessageCreated   = "MESSAGE_CREATED"
	EventTypeMessageUpdated   = "MESSAGE_UPDATED"
	EventTypeMessageRemoved   = "MESSAGE_REMOVED"
	EventTypeWorkspaceUpdated = "WORKSPACE_UPDATED"
	EventTypeUploadSwept      = "UPLOAD_SWEPT"
)
