package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"team_chat/internal/domain"
	"team_chat/pkg/logger"
)

// Broker - транспорт событий ленты между инстансами (Redis pub/sub)
type Broker interface {
	Publish(ctx context.Context, event domain.FeedEvent) error
	Subscribe(ctx context.Context, workspaceID uuid.UUID) (<-chan domain.FeedEvent, error)
}

// Gauge - счетчик открытых подписок
type Gauge interface {
	Inc()
	Dec()
}

type Hub struct {
	broker Broker
	limit  rate.Limit
	burst  int
	gauge  Gauge
	log    logger.Logger
}

// NewHub: eventsPerSecond <= 0 отключает ограничение
func NewHub(broker Broker, eventsPerSecond float64, gauge Gauge, log logger.Logger) *Hub {
	limit := rate.Inf
	burst := 1
	if eventsPerSecond > 0 {
		limit = rate.Limit(eventsPerSecond)
		burst = int(eventsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &Hub{broker: broker, limit: limit, burst: burst, gauge: gauge, log: log}
}

// Notify публикует событие. Ошибка только логируется: мутация уже выполнена.
func (h *Hub) Notify(ctx context.Context, eventType string, message *domain.Message) {
	event := domain.NewFeedEvent(eventType, message)
	if err := h.broker.Publish(ctx, event); err != nil {
		h.log.Warn("Failed to publish feed event", "type", eventType, "message_id", message.ID, "error", err)
	}
}

// Stream пересылает события пространства в send до отмены ctx или ошибки send.
// Исходящий поток ограничен токен-бакетом на соединение.
func (h *Hub) Stream(ctx context.Context, workspaceID uuid.UUID, send func(domain.FeedEvent) error) error {
	events, err := h.broker.Subscribe(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	if h.gauge != nil {
		h.gauge.Inc()
		defer h.gauge.Dec()
	}

	limiter := rate.NewLimiter(h.limit, h.burst)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			if err := send(event); err != nil {
				return err
			}
		}
	}
}
