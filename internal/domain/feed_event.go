package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	FeedEventMessageCreated  = "message.created"
	FeedEventMessageUpdated  = "message.updated"
	FeedEventMessageRemoved  = "message.removed"
	FeedEventReactionToggled = "reaction.toggled"
)

// FeedEvent сообщает подписчикам, что ленту нужно перечитать
type FeedEvent struct {
	Type            string     `json:"type"`
	WorkspaceID     uuid.UUID  `json:"workspace_id"`
	ChannelID       *uuid.UUID `json:"channel_id,omitempty"`
	ConversationID  *uuid.UUID `json:"conversation_id,omitempty"`
	ParentMessageID *uuid.UUID `json:"parent_message_id,omitempty"`
	MessageID       uuid.UUID  `json:"message_id"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

func NewFeedEvent(eventType string, m *Message) FeedEvent {
	return FeedEvent{
		Type:            eventType,
		WorkspaceID:     m.WorkspaceID,
		ChannelID:       m.ChannelID,
		ConversationID:  m.ConversationID,
		ParentMessageID: m.ParentMessageID,
		MessageID:       m.ID,
		OccurredAt:      time.Now(),
	}
}
