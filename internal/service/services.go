package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"team_chat/internal/config"
	"team_chat/internal/domain"
	"team_chat/internal/metrics"
	"team_chat/internal/repository"
	"team_chat/internal/search"
	"team_chat/internal/storage"
	"team_chat/pkg/logger"
)

// Indexer - поисковый индекс сообщений
type Indexer interface {
	IndexMessage(m *domain.Message)
	DeleteMessages(ids []uuid.UUID)
	Search(ctx context.Context, workspaceID uuid.UUID, text string, limit int) ([]search.Hit, error)
}

// Notifier рассылает события ленты подписчикам
type Notifier interface {
	Notify(ctx context.Context, eventType string, message *domain.Message)
}

type Services struct {
	Auth      AuthService
	User      UserService
	Message   MessageService
	Reaction  ReactionService
	Workspace WorkspaceService
	Upload    UploadService
	Search    SearchService
	RateLimit RateLimitService
	Audit     AuditService
}

func NewServices(
	repos *repository.Repositories,
	objects storage.ObjectStore,
	indexer Indexer,
	notifier Notifier,
	m *metrics.Metrics,
	cfg *config.Config,
	log logger.Logger,
) *Services {
	audit := NewAuditService(repos.Audit, log)

	feed := &feedJoiner{
		messages:    repos.Message,
		workspaces:  repos.Workspace,
		users:       repos.User,
		reactions:   repos.Reaction,
		objects:     objects,
		concurrency: cfg.Feed.JoinConcurrency,
		log:         log,
	}
	var uploaded prometheus.Counter
	if m != nil {
		feed.joinTime = m.FeedJoin
		feed.dropped = m.FeedDropped
		uploaded = m.UploadedBytes
	}

	services := &Services{
		Auth:      NewAuthService(repos.User, cfg.JWT, log),
		User:      NewUserService(repos.User, log),
		Message:   NewMessageService(repos, objects, indexer, notifier, audit, feed, cfg.Feed, log),
		Reaction:  NewReactionService(repos, notifier, log),
		Workspace: NewWorkspaceService(repos.Workspace, audit, log),
		Upload:    NewUploadService(repos, objects, cfg.Storage, uploaded, log),
		Search:    NewSearchService(repos.Message, repos.Workspace, indexer, feed, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
		Audit:     audit,
	}

	log.Info("Services initialized")

	return services
}
