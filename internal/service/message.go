package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"team_chat/internal/config"
	"team_chat/internal/domain"
	"team_chat/internal/repository"
	"team_chat/internal/storage"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

type CreateMessageInput struct {
	WorkspaceID     uuid.UUID
	Body            string
	Image           *string
	ChannelID       *uuid.UUID
	ConversationID  *uuid.UUID
	ParentMessageID *uuid.UUID
}

type MessageService interface {
	Create(ctx context.Context, in CreateMessageInput) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, body string) (uuid.UUID, error)
	Remove(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	// GetByID возвращает nil, если сообщение недоступно вызывающему
	GetByID(ctx context.Context, id uuid.UUID) (*domain.HydratedMessage, error)
	Get(ctx context.Context, q domain.FeedQuery) (*domain.MessagePage, error)
}

type messageService struct {
	messages   repository.MessageRepository
	workspaces repository.WorkspaceRepository
	uploads    repository.UploadRepository
	objects    storage.ObjectStore
	feed       *feedJoiner
	search     Indexer
	notifier   Notifier
	audit      AuditService
	feedCfg    config.FeedConfig
	log        logger.Logger
	now        func() time.Time
}

func NewMessageService(
	repos *repository.Repositories,
	objects storage.ObjectStore,
	search Indexer,
	notifier Notifier,
	audit AuditService,
	feed *feedJoiner,
	feedCfg config.FeedConfig,
	log logger.Logger,
) MessageService {
	return &messageService{
		messages:   repos.Message,
		workspaces: repos.Workspace,
		uploads:    repos.Upload,
		objects:    objects,
		feed:       feed,
		search:     search,
		notifier:   notifier,
		audit:      audit,
		feedCfg:    feedCfg,
		log:        log,
		now:        time.Now,
	}
}

func emptyPage() *domain.MessagePage {
	return &domain.MessagePage{
		Page:           []*domain.HydratedMessage{},
		ContinueCursor: domain.CursorDone,
		IsDone:         true,
	}
}

func (s *messageService) Create(ctx context.Context, in CreateMessageInput) (uuid.UUID, error) {
	member, err := requireMember(ctx, s.workspaces, in.WorkspaceID)
	if err != nil {
		return uuid.Nil, err
	}

	if in.Body == "" {
		return uuid.Nil, fmt.Errorf("%w: body is required", apperrors.ErrBadRequest)
	}
	if in.ChannelID != nil && in.ConversationID != nil {
		return uuid.Nil, fmt.Errorf("%w: channel and conversation are mutually exclusive", apperrors.ErrBadRequest)
	}

	conversationID := in.ConversationID
	if in.ParentMessageID != nil {
		parent, err := s.messages.GetByID(ctx, *in.ParentMessageID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return uuid.Nil, apperrors.ErrParentNotFound
			}
			return uuid.Nil, err
		}
		if parent.WorkspaceID != in.WorkspaceID {
			return uuid.Nil, apperrors.ErrParentNotFound
		}
		// ответ в треде без явного маршрута наследует переписку родителя
		if in.ChannelID == nil && in.ConversationID == nil {
			conversationID = parent.ConversationID
		}
	} else if in.ChannelID == nil && in.ConversationID == nil {
		return uuid.Nil, fmt.Errorf("%w: channel, conversation or parent message is required", apperrors.ErrBadRequest)
	}

	if err := s.checkRoute(ctx, in.WorkspaceID, in.ChannelID, in.ConversationID); err != nil {
		return uuid.Nil, err
	}

	if in.Image != nil {
		upload, err := s.uploads.Get(ctx, *in.Image)
		if err != nil {
			return uuid.Nil, err
		}
		if upload.UserID != member.UserID {
			return uuid.Nil, fmt.Errorf("%w: upload belongs to another user", apperrors.ErrForbidden)
		}
	}

	now := s.now()
	// загрузку занимаем до вставки, чтобы ее не забрали другое сообщение или чистильщик
	if in.Image != nil {
		if err := s.uploads.Attach(ctx, *in.Image, now); err != nil {
			return uuid.Nil, err
		}
	}

	message := &domain.Message{
		ID:              uuid.New(),
		WorkspaceID:     in.WorkspaceID,
		ChannelID:       in.ChannelID,
		ConversationID:  conversationID,
		ParentMessageID: in.ParentMessageID,
		MemberID:        member.ID,
		Body:            in.Body,
		Image:           in.Image,
		CreatedAt:       now,
	}

	if err := s.messages.Create(ctx, message); err != nil {
		if in.Image != nil {
			if derr := s.uploads.Detach(ctx, *in.Image); derr != nil {
				s.log.Warn("Failed to detach upload", "storage_id", *in.Image, "error", derr)
			}
		}
		return uuid.Nil, err
	}

	s.notifier.Notify(ctx, domain.FeedEventMessageCreated, message)
	s.search.IndexMessage(message)
	s.logAudit(ctx, member, domain.EventTypeMessageCreated, message.ID)

	return message.ID, nil
}

// checkRoute проверяет, что канал или переписка принадлежат пространству
func (s *messageService) checkRoute(ctx context.Context, workspaceID uuid.UUID, channelID, conversationID *uuid.UUID) error {
	if channelID != nil {
		ch, err := s.workspaces.GetChannel(ctx, *channelID)
		if err != nil {
			return err
		}
		if ch.WorkspaceID != workspaceID {
			return fmt.Errorf("%w: channel", apperrors.ErrNotFound)
		}
	}
	if conversationID != nil {
		conv, err := s.workspaces.GetConversation(ctx, *conversationID)
		if err != nil {
			return err
		}
		if conv.WorkspaceID != workspaceID {
			return fmt.Errorf("%w: conversation", apperrors.ErrNotFound)
		}
	}
	return nil
}

// authorize: сообщение существует и вызывающий - его автор
func (s *messageService) authorize(ctx context.Context, id uuid.UUID) (*domain.Message, *domain.Member, error) {
	if _, ok := Identity(ctx); !ok {
		return nil, nil, apperrors.ErrUnauthorized
	}

	message, err := s.messages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.ErrMessageNotFound
		}
		return nil, nil, err
	}

	member, err := requireMember(ctx, s.workspaces, message.WorkspaceID)
	if err != nil {
		return nil, nil, err
	}
	if member.ID != message.MemberID {
		return nil, nil, apperrors.ErrUnauthorized
	}

	return message, member, nil
}

func (s *messageService) Update(ctx context.Context, id uuid.UUID, body string) (uuid.UUID, error) {
	if body == "" {
		return uuid.Nil, fmt.Errorf("%w: body is required", apperrors.ErrBadRequest)
	}

	message, member, err := s.authorize(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}

	now := s.now()
	if err := s.messages.UpdateBody(ctx, id, body, now); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return uuid.Nil, apperrors.ErrMessageNotFound
		}
		return uuid.Nil, err
	}
	message.Body = body
	message.UpdatedAt = &now

	s.notifier.Notify(ctx, domain.FeedEventMessageUpdated, message)
	s.search.IndexMessage(message)
	s.logAudit(ctx, member, domain.EventTypeMessageUpdated, id)

	return id, nil
}

func (s *messageService) Remove(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	message, member, err := s.authorize(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}

	deleted, err := s.messages.DeleteCascade(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return uuid.Nil, apperrors.ErrMessageNotFound
		}
		return uuid.Nil, err
	}

	// изображения удаляются после коммита, ошибки только логируются
	for _, image := range deleted.Images {
		if err := s.objects.Remove(ctx, storage.ObjectKey(image)); err != nil {
			s.log.Warn("Failed to remove message image", "storage_id", image, "error", err)
			continue
		}
		if err := s.uploads.Delete(ctx, image); err != nil {
			s.log.Warn("Failed to delete upload row", "storage_id", image, "error", err)
		}
	}

	s.notifier.Notify(ctx, domain.FeedEventMessageRemoved, message)
	s.search.DeleteMessages(deleted.MessageIDs)
	s.logAudit(ctx, member, domain.EventTypeMessageRemoved, id, "cascade", len(deleted.MessageIDs)-1)

	return id, nil
}

func (s *messageService) GetByID(ctx context.Context, id uuid.UUID) (*domain.HydratedMessage, error) {
	if _, ok := Identity(ctx); !ok {
		return nil, nil
	}

	message, err := s.messages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	member, err := lookupMember(ctx, s.workspaces, message.WorkspaceID)
	if err != nil || member == nil {
		return nil, err
	}

	return s.feed.hydrate(ctx, message)
}

func (s *messageService) Get(ctx context.Context, q domain.FeedQuery) (*domain.MessagePage, error) {
	if q.ChannelID == nil && q.ConversationID == nil && q.ParentMessageID == nil {
		return nil, fmt.Errorf("%w: channel, conversation or parent message is required", apperrors.ErrBadRequest)
	}
	if q.ChannelID != nil && q.ConversationID != nil {
		return nil, fmt.Errorf("%w: channel and conversation are mutually exclusive", apperrors.ErrBadRequest)
	}

	if q.Cursor == domain.CursorDone {
		return emptyPage(), nil
	}
	cursor, err := repository.DecodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}

	if _, ok := Identity(ctx); !ok {
		return emptyPage(), nil
	}

	key, workspaceID, err := s.resolveFeed(ctx, q)
	if err != nil {
		return nil, err
	}
	if workspaceID == uuid.Nil {
		return emptyPage(), nil
	}

	member, err := lookupMember(ctx, s.workspaces, workspaceID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return emptyPage(), nil
	}

	limit := s.pageSize(q.NumItems)
	rows, err := s.messages.ListFeed(ctx, key, cursor, limit+1)
	if err != nil {
		return nil, err
	}

	isDone := len(rows) <= limit
	if !isDone {
		rows = rows[:limit]
	}

	page, err := s.feed.hydrateAll(ctx, rows)
	if err != nil {
		return nil, err
	}

	result := &domain.MessagePage{Page: page, ContinueCursor: domain.CursorDone, IsDone: isDone}
	if !isDone {
		last := rows[len(rows)-1]
		result.ContinueCursor = repository.EncodeCursor(domain.MessageCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

// resolveFeed определяет ключ индекса и пространство ленты.
// Нулевой workspaceID означает, что канал или переписка не найдены.
func (s *messageService) resolveFeed(ctx context.Context, q domain.FeedQuery) (domain.FeedKey, uuid.UUID, error) {
	key := domain.FeedKey{
		ChannelID:       q.ChannelID,
		ParentMessageID: q.ParentMessageID,
		ConversationID:  q.ConversationID,
	}

	switch {
	case q.ParentMessageID != nil:
		parent, err := s.messages.GetByID(ctx, *q.ParentMessageID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return key, uuid.Nil, apperrors.ErrParentNotFound
			}
			return key, uuid.Nil, err
		}
		if q.ChannelID == nil && q.ConversationID == nil {
			key.ConversationID = parent.ConversationID
		}
		return key, parent.WorkspaceID, nil

	case q.ChannelID != nil:
		ch, err := s.workspaces.GetChannel(ctx, *q.ChannelID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return key, uuid.Nil, nil
			}
			return key, uuid.Nil, err
		}
		return key, ch.WorkspaceID, nil

	default:
		conv, err := s.workspaces.GetConversation(ctx, *q.ConversationID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return key, uuid.Nil, nil
			}
			return key, uuid.Nil, err
		}
		return key, conv.WorkspaceID, nil
	}
}

func (s *messageService) pageSize(n int) int {
	defSize, maxSize := s.feedCfg.DefaultPageSize, s.feedCfg.MaxPageSize
	if defSize <= 0 {
		defSize = 20
	}
	if maxSize <= 0 {
		maxSize = 100
	}
	if n <= 0 {
		n = defSize
	}
	if n > maxSize {
		n = maxSize
	}
	return n
}

func (s *messageService) logAudit(ctx context.Context, member *domain.Member, eventType string, messageID uuid.UUID, extra ...interface{}) {
	payload := map[string]interface{}{"message_id": messageID.String()}
	for i := 0; i+1 < len(extra); i += 2 {
		if k, ok := extra[i].(string); ok {
			payload[k] = extra[i+1]
		}
	}
	if err := s.audit.LogEvent(ctx, &member.UserID, &member.ID, &member.WorkspaceID, eventType, payload); err != nil {
		s.log.Warn("Failed to write audit log", "event", eventType, "error", err)
	}
}
