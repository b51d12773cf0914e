package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reaction - одна строка (message, member, value)
type Reaction struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	MessageID   uuid.UUID `json:"message_id"`
	MemberID    uuid.UUID `json:"member_id"`
	Value       string    `json:"value"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReactionGroup - все реакции сообщения с одним значением.
// Поля строки берутся из первой встреченной реакции, member_id заменен списком MemberIDs.
type ReactionGroup struct {
	ID          uuid.UUID   `json:"id"`
	WorkspaceID uuid.UUID   `json:"workspace_id"`
	MessageID   uuid.UUID   `json:"message_id"`
	Value       string      `json:"value"`
	CreatedAt   time.Time   `json:"created_at"`
	Count       int         `json:"count"`
	MemberIDs   []uuid.UUID `json:"member_ids"`
}
