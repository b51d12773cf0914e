package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"team_chat/internal/domain"
	"team_chat/internal/service"
	"team_chat/pkg/logger"
)

type MessageHandler struct {
	messageService  service.MessageService
	reactionService service.ReactionService
	log             logger.Logger
}

func NewMessageHandler(messageService service.MessageService, reactionService service.ReactionService, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService:  messageService,
		reactionService: reactionService,
		log:             log,
	}
}

type CreateMessageRequest struct {
	WorkspaceID     uuid.UUID  `json:"workspace_id"`
	Body            string     `json:"body"`
	Image           *string    `json:"image,omitempty"`
	ChannelID       *uuid.UUID `json:"channel_id,omitempty"`
	ConversationID  *uuid.UUID `json:"conversation_id,omitempty"`
	ParentMessageID *uuid.UUID `json:"parent_message_id,omitempty"`
}

type UpdateMessageRequest struct {
	Body string `json:"body"`
}

type ToggleReactionRequest struct {
	Value string `json:"value"`
}

func (h *MessageHandler) Create(c *gin.Context) {
	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequest("%v", err))
		return
	}

	id, err := h.messageService.Create(c.Request.Context(), service.CreateMessageInput{
		WorkspaceID:     req.WorkspaceID,
		Body:            req.Body,
		Image:           req.Image,
		ChannelID:       req.ChannelID,
		ConversationID:  req.ConversationID,
		ParentMessageID: req.ParentMessageID,
	})
	if err != nil {
		fail(c, err)
		return
	}

	h.log.Debug("Message created", "message_id", id, "workspace_id", req.WorkspaceID)
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *MessageHandler) Update(c *gin.Context) {
	messageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequest("%v", err))
		return
	}

	id, err := h.messageService.Update(c.Request.Context(), messageID, req.Body)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *MessageHandler) Remove(c *gin.Context) {
	messageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	id, err := h.messageService.Remove(c.Request.Context(), messageID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// GetByID отвечает null, если сообщение скрыто или не существует
func (h *MessageHandler) GetByID(c *gin.Context) {
	messageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	message, err := h.messageService.GetByID(c.Request.Context(), messageID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, message)
}

func (h *MessageHandler) List(c *gin.Context) {
	var (
		q   domain.FeedQuery
		err error
	)
	if q.ChannelID, err = queryUUID(c, "channel_id"); err != nil {
		fail(c, err)
		return
	}
	if q.ConversationID, err = queryUUID(c, "conversation_id"); err != nil {
		fail(c, err)
		return
	}
	if q.ParentMessageID, err = queryUUID(c, "parent_message_id"); err != nil {
		fail(c, err)
		return
	}
	if q.NumItems, err = queryInt(c, "num_items"); err != nil {
		fail(c, err)
		return
	}
	q.Cursor = c.Query("cursor")

	page, err := h.messageService.Get(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	messageID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req ToggleReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequest("%v", err))
		return
	}

	id, err := h.reactionService.Toggle(c.Request.Context(), messageID, req.Value)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}
