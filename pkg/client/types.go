package client

import (
	"time"

	"github.com/google/uuid"
)

// Типы ответов API. Пакет открыт для внешних модулей, поэтому
// internal/domain сюда не протекает.

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Image     *string   `json:"image,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Member struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// Reaction - реакции с одним значением, MemberIDs без повторов
type Reaction struct {
	ID          uuid.UUID   `json:"id"`
	WorkspaceID uuid.UUID   `json:"workspace_id"`
	MessageID   uuid.UUID   `json:"message_id"`
	Value       string      `json:"value"`
	CreatedAt   time.Time   `json:"created_at"`
	Count       int         `json:"count"`
	MemberIDs   []uuid.UUID `json:"member_ids"`
}

// Message - сообщение ленты с автором, реакциями и сводкой треда.
// Image уже готовый URL.
type Message struct {
	ID              uuid.UUID  `json:"id"`
	WorkspaceID     uuid.UUID  `json:"workspace_id"`
	ChannelID       *uuid.UUID `json:"channel_id,omitempty"`
	ConversationID  *uuid.UUID `json:"conversation_id,omitempty"`
	ParentMessageID *uuid.UUID `json:"parent_message_id,omitempty"`
	MemberID        uuid.UUID  `json:"member_id"`
	Body            string     `json:"body"`
	Image           *string    `json:"image,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`

	Member    *Member    `json:"member"`
	User      *User      `json:"user"`
	Reactions []Reaction `json:"reactions"`

	ThreadCount     int     `json:"thread_count"`
	ThreadImage     *string `json:"thread_image,omitempty"`
	ThreadName      string  `json:"thread_name"`
	ThreadTimestamp int64   `json:"thread_timestamp"`
}

// CursorDone - курсор, который сервер отдает вместе с последней страницей
const CursorDone = "_end_cursor"

type MessagePage struct {
	Page           []*Message `json:"page"`
	ContinueCursor string     `json:"continue_cursor"`
	IsDone         bool       `json:"is_done"`
}

// FeedQuery - ровно один маршрут ленты: канал, переписка или тред
type FeedQuery struct {
	ChannelID       *uuid.UUID
	ConversationID  *uuid.UUID
	ParentMessageID *uuid.UUID
	Cursor          string
	NumItems        int
}

type Workspace struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	UserID    uuid.UUID `json:"user_id"`
	JoinCode  string    `json:"join_code"`
	CreatedAt time.Time `json:"created_at"`
}

type WorkspaceInfo struct {
	Name     string `json:"name"`
	IsMember bool   `json:"is_member"`
}
