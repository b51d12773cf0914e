package handler

import (
	"team_chat/internal/config"
	"team_chat/internal/service"
	"team_chat/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	User      *UserHandler
	Message   *MessageHandler
	Workspace *WorkspaceHandler
	Upload    *UploadHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, feed FeedStreamer, checks map[string]Check, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(checks),
		Auth:      NewAuthHandler(services.Auth, log),
		User:      NewUserHandler(services.User, log),
		Message:   NewMessageHandler(services.Message, services.Reaction, log),
		Workspace: NewWorkspaceHandler(services.Workspace, services.Search, log),
		Upload:    NewUploadHandler(services.Upload, cfg.Storage.MaxUploadBytes, log),
		WebSocket: NewWebSocketHandler(services.Workspace, feed, cfg.Server.AllowedOrigins, log),
	}
}
