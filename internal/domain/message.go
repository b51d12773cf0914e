package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message хранится с одним из двух маршрутов: channel_id или conversation_id.
// Ответы в треде указывают на корень через ParentMessageID.
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
}

// ThreadSummary вычисляется из ответов и не хранится.
type ThreadSummary struct {
	Count     int     `json:"count"`
	Image     *string `json:"image,omitempty"`
	Name      string  `json:"name"`
	Timestamp int64   `json:"timestamp"`
}

// HydratedMessage - сообщение вместе с автором, реакциями и сводкой треда.
// Image здесь уже URL, а не ссылка на хранилище.
type HydratedMessage struct {
	Message
	Image           *string         `json:"image,omitempty"`
	Member          *Member         `json:"member"`
	User            *User           `json:"user"`
	Reactions       []ReactionGroup `json:"reactions"`
	ThreadCount     int             `json:"thread_count"`
	ThreadImage     *string         `json:"thread_image,omitempty"`
	ThreadName      string          `json:"thread_name"`
	ThreadTimestamp int64           `json:"thread_timestamp"`
}

// CursorDone - маркер курсора для последней страницы
const CursorDone = "_end_cursor"

type MessagePage struct {
	Page           []*HydratedMessage `json:"page"`
	ContinueCursor string             `json:"continue_cursor"`
	IsDone         bool               `json:"is_done"`
}

// FeedQuery описывает ленту: канал, переписку или тред.
type FeedQuery struct {
	ChannelID       *uuid.UUID
	ConversationID  *uuid.UUID
	ParentMessageID *uuid.UUID
	Cursor          string
	NumItems        int
}

// FeedKey - разрешенный ключ составного индекса (channel, parent, conversation)
type FeedKey struct {
	ChannelID       *uuid.UUID
	ParentMessageID *uuid.UUID
	ConversationID  *uuid.UUID
}

// MessageCursor - позиция keyset пагинации
type MessageCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}
