package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"team_chat/internal/domain"
	"team_chat/internal/service"
	"team_chat/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// FeedStreamer - источник событий ленты (realtime.Hub)
type FeedStreamer interface {
	Stream(ctx context.Context, workspaceID uuid.UUID, send func(domain.FeedEvent) error) error
}

type WebSocketHandler struct {
	workspaceService service.WorkspaceService
	feed             FeedStreamer
	upgrader         websocket.Upgrader
	log              logger.Logger
}

func NewWebSocketHandler(workspaceService service.WorkspaceService, feed FeedStreamer, allowedOrigins []string, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		workspaceService: workspaceService,
		feed:             feed,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
		log: log,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// HandleFeed пересылает события ленты пространства участнику до закрытия сокета
func (h *WebSocketHandler) HandleFeed(c *gin.Context) {
	workspaceID, ok := pathUUID(c, "workspaceId")
	if !ok {
		return
	}

	// GetByID возвращает nil для не участников
	ws, err := h.workspaceService.GetByID(c.Request.Context(), workspaceID)
	if err != nil {
		fail(c, err)
		return
	}
	if ws == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a workspace member"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// читаем только для pong и обнаружения закрытия
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	err = h.feed.Stream(ctx, workspaceID, func(event domain.FeedEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(event)
	})
	if err != nil && ctx.Err() == nil {
		h.log.Warn("Feed stream closed", "workspace_id", workspaceID, "error", err)
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
