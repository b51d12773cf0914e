package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"team_chat/pkg/logger"
)

type Repositories struct {
	User        UserRepository
	Workspace   WorkspaceRepository
	Message     MessageRepository
	Reaction    ReactionRepository
	Upload      UploadRepository
	UploadToken UploadTokenRepository
	FeedEvents  FeedEventRepository
	Audit       AuditRepository
	RateLimit   RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{
		User:        NewUserRepository(db, log),
		Workspace:   NewWorkspaceRepository(db, log),
		Message:     NewMessageRepository(db, log),
		Reaction:    NewReactionRepository(db, log),
		Upload:      NewUploadRepository(db, log),
		UploadToken: NewUploadTokenRepository(redis, log),
		FeedEvents:  NewFeedEventRepository(redis, log),
		Audit:       NewAuditRepository(db, log),
		RateLimit:   NewRateLimitRepository(redis, log),
	}

	log.Info("Repositories initialized")

	return repos
}
