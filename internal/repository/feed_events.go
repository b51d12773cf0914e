package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"team_chat/internal/domain"
	"team_chat/pkg/logger"
)

type FeedEventRepository interface {
	Publish(ctx context.Context, event domain.FeedEvent) error
	// Subscribe возвращает канал событий рабочего пространства.
	// Канал закрывается после отмены ctx.
	Subscribe(ctx context.Context, workspaceID uuid.UUID) (<-chan domain.FeedEvent, error)
}

type feedEventRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewFeedEventRepository(redis *redis.Client, log logger.Logger) FeedEventRepository {
	return &feedEventRepository{redis: redis, log: log}
}

func feedChannel(workspaceID uuid.UUID) string {
	return "feed:" + workspaceID.String()
}

func (r *feedEventRepository) Publish(ctx context.Context, event domain.FeedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}

	if err := r.redis.Publish(ctx, feedChannel(event.WorkspaceID), data).Err(); err != nil {
		r.log.Error("Failed to publish feed event", "error", err, "type", event.Type)
		return fmt.Errorf("publish feed event: %w", err)
	}
	return nil
}

func (r *feedEventRepository) Subscribe(ctx context.Context, workspaceID uuid.UUID) (<-chan domain.FeedEvent, error) {
	pubsub := r.redis.Subscribe(ctx, feedChannel(workspaceID))

	// Ждем подтверждения подписки, иначе первые события могут потеряться
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe feed: %w", err)
	}

	out := make(chan domain.FeedEvent, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event domain.FeedEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					r.log.Warn("Skipping malformed feed event", "error", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
