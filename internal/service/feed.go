package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"team_chat/internal/domain"
	"team_chat/internal/repository"
	"team_chat/internal/storage"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

// DedupeReactions сворачивает строки реакций в группы по значению.
// Группы идут в порядке первого появления значения, участники без повторов
// в порядке первого появления, Count равен числу исходных строк.
func DedupeReactions(reactions []domain.Reaction) []domain.ReactionGroup {
	groups := make([]domain.ReactionGroup, 0)
	index := make(map[string]int)
	seen := make(map[string]map[uuid.UUID]struct{})

	for _, r := range reactions {
		i, ok := index[r.Value]
		if !ok {
			i = len(groups)
			index[r.Value] = i
			seen[r.Value] = make(map[uuid.UUID]struct{})
			groups = append(groups, domain.ReactionGroup{
				ID:          r.ID,
				WorkspaceID: r.WorkspaceID,
				MessageID:   r.MessageID,
				Value:       r.Value,
				CreatedAt:   r.CreatedAt,
				MemberIDs:   []uuid.UUID{},
			})
		}

		groups[i].Count++
		if _, dup := seen[r.Value][r.MemberID]; !dup {
			seen[r.Value][r.MemberID] = struct{}{}
			groups[i].MemberIDs = append(groups[i].MemberIDs, r.MemberID)
		}
	}

	return groups
}

// SummarizeThread возвращает число ответов и самый новый ответ.
// Порядок выборки не важен: ответы сортируются по created_at, затем по id.
func SummarizeThread(replies []*domain.Message) (int, *domain.Message) {
	if len(replies) == 0 {
		return 0, nil
	}

	sorted := make([]*domain.Message, len(replies))
	copy(sorted, replies)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID.String() > sorted[j].ID.String()
	})

	return len(replies), sorted[0]
}

// feedJoiner собирает автора, реакции, картинку и сводку треда для сообщений
type feedJoiner struct {
	messages    repository.MessageRepository
	workspaces  repository.WorkspaceRepository
	users       repository.UserRepository
	reactions   repository.ReactionRepository
	objects     storage.ObjectStore
	concurrency int
	joinTime    prometheus.Observer
	dropped     prometheus.Counter
	log         logger.Logger
}

// author возвращает (nil, nil, nil), если участник или пользователь удалены
func (j *feedJoiner) author(ctx context.Context, memberID uuid.UUID) (*domain.Member, *domain.User, error) {
	member, err := j.workspaces.GetMemberByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	user, err := j.users.GetByID(ctx, member.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	user.PasswordHash = ""

	return member, user, nil
}

func (j *feedJoiner) thread(ctx context.Context, messageID uuid.UUID) (domain.ThreadSummary, error) {
	replies, err := j.messages.ListReplies(ctx, messageID)
	if err != nil {
		return domain.ThreadSummary{}, err
	}

	count, latest := SummarizeThread(replies)
	if count == 0 {
		return domain.ThreadSummary{}, nil
	}

	summary := domain.ThreadSummary{Count: count, Timestamp: latest.CreatedAt.UnixMilli()}
	_, user, err := j.author(ctx, latest.MemberID)
	if err != nil {
		return domain.ThreadSummary{}, err
	}
	if user != nil {
		summary.Name = user.Name
		summary.Image = user.Image
	}
	return summary, nil
}

func (j *feedJoiner) imageURL(ctx context.Context, storageID *string) *string {
	if storageID == nil || *storageID == "" {
		return nil
	}
	url, err := j.objects.PresignedURL(ctx, storage.ObjectKey(*storageID))
	if err != nil {
		j.log.Warn("Failed to resolve image URL", "storage_id", *storageID, "error", err)
		return nil
	}
	return &url
}

// hydrate возвращает nil без ошибки, если автора сообщения больше нет
func (j *feedJoiner) hydrate(ctx context.Context, m *domain.Message) (*domain.HydratedMessage, error) {
	member, user, err := j.author(ctx, m.MemberID)
	if err != nil {
		return nil, err
	}
	if member == nil || user == nil {
		return nil, nil
	}

	reactions, err := j.reactions.ListByMessage(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	summary, err := j.thread(ctx, m.ID)
	if err != nil {
		return nil, err
	}

	return &domain.HydratedMessage{
		Message:         *m,
		Image:           j.imageURL(ctx, m.Image),
		Member:          member,
		User:            user,
		Reactions:       DedupeReactions(reactions),
		ThreadCount:     summary.Count,
		ThreadImage:     summary.Image,
		ThreadName:      summary.Name,
		ThreadTimestamp: summary.Timestamp,
	}, nil
}

// hydrateAll обрабатывает сообщения параллельно и сохраняет исходный порядок.
// Сообщения без автора выпадают, поэтому страница может стать короче.
func (j *feedJoiner) hydrateAll(ctx context.Context, messages []*domain.Message) ([]*domain.HydratedMessage, error) {
	start := time.Now()
	results := make([]*domain.HydratedMessage, len(messages))

	g, gctx := errgroup.WithContext(ctx)
	if j.concurrency > 0 {
		g.SetLimit(j.concurrency)
	}
	for i, m := range messages {
		i, m := i, m
		g.Go(func() error {
			h, err := j.hydrate(gctx, m)
			if err != nil {
				return err
			}
			results[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page := make([]*domain.HydratedMessage, 0, len(results))
	for _, h := range results {
		if h != nil {
			page = append(page, h)
		}
	}

	if j.joinTime != nil {
		j.joinTime.Observe(time.Since(start).Seconds())
	}
	if dropped := len(messages) - len(page); dropped > 0 {
		if j.dropped != nil {
			j.dropped.Add(float64(dropped))
		}
		j.log.Debug("Feed items dropped", "count", dropped)
	}

	return page, nil
}
