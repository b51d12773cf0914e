package search

import (
	"context"

	"github.com/google/uuid"
	"team_chat/internal/domain"
	"team_chat/pkg/logger"
)

// Hit - найденное сообщение
type Hit struct {
	MessageID uuid.UUID `json:"message_id"`
	Snippet   string    `json:"snippet"`
}

// Fallback - поиск по БД, когда Meilisearch недоступен
type Fallback interface {
	SearchBody(ctx context.Context, workspaceID uuid.UUID, text string, limit int) ([]*domain.Message, error)
}

type engine interface {
	Healthy() bool
	Search(workspaceID uuid.UUID, text string, limit int) ([]Hit, error)
	Index(record MessageRecord) error
	Delete(ids []string) error
}

// Service сначала пробует Meilisearch, затем БД
type Service struct {
	engine   engine
	fallback Fallback
	log      logger.Logger
}

// NewService: meili может быть nil, если поиск не настроен
func NewService(m *Meili, fallback Fallback, log logger.Logger) *Service {
	s := &Service{fallback: fallback, log: log}
	if m != nil {
		s.engine = m
	}
	return s
}

func (s *Service) Search(ctx context.Context, workspaceID uuid.UUID, text string, limit int) ([]Hit, error) {
	if s.engine != nil && s.engine.Healthy() {
		hits, err := s.engine.Search(workspaceID, text, limit)
		if err == nil {
			return nonNil(hits), nil
		}
		s.log.Warn("Meilisearch error, falling back to database", "error", err)
	}

	messages, err := s.fallback.SearchBody(ctx, workspaceID, text, limit)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(messages))
	for _, m := range messages {
		hits = append(hits, Hit{MessageID: m.ID, Snippet: PlainText(m.Body)})
	}
	return hits, nil
}

// IndexMessage отправляет сообщение в индекс в фоне, ошибки только логируются
func (s *Service) IndexMessage(m *domain.Message) {
	if s.engine == nil || !s.engine.Healthy() {
		return
	}
	record := toRecord(m)
	go func() {
		if err := s.engine.Index(record); err != nil {
			s.log.Warn("Failed to index message", "message_id", record.ID, "error", err)
		}
	}()
}

func (s *Service) DeleteMessages(ids []uuid.UUID) {
	if s.engine == nil || !s.engine.Healthy() || len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	go func() {
		if err := s.engine.Delete(keys); err != nil {
			s.log.Warn("Failed to delete messages from index", "count", len(keys), "error", err)
		}
	}()
}

func toRecord(m *domain.Message) MessageRecord {
	r := MessageRecord{
		ID:          m.ID.String(),
		WorkspaceID: m.WorkspaceID.String(),
		Text:        PlainText(m.Body),
		CreatedAt:   m.CreatedAt.UnixMilli(),
	}
	if m.ChannelID != nil {
		r.ChannelID = m.ChannelID.String()
	}
	if m.ConversationID != nil {
		r.ConversationID = m.ConversationID.String()
	}
	if m.ParentMessageID != nil {
		r.ParentMessageID = m.ParentMessageID.String()
	}
	return r
}

func nonNil(h []Hit) []Hit {
	if h == nil {
		return []Hit{}
	}
	return h
}
