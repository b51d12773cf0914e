package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"team_chat/internal/domain"
	"team_chat/internal/repository"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

const searchLimit = 20

// SearchResult - найденное сообщение вместе с фрагментом текста
type SearchResult struct {
	Message *domain.HydratedMessage `json:"message"`
	Snippet string                  `json:"snippet"`
}

type SearchService interface {
	Search(ctx context.Context, workspaceID uuid.UUID, text string) ([]SearchResult, error)
}

type searchService struct {
	messages   repository.MessageRepository
	workspaces repository.WorkspaceRepository
	indexer    Indexer
	feed       *feedJoiner
	log        logger.Logger
}

func NewSearchService(messages repository.MessageRepository, workspaces repository.WorkspaceRepository, indexer Indexer, feed *feedJoiner, log logger.Logger) SearchService {
	return &searchService{
		messages:   messages,
		workspaces: workspaces,
		indexer:    indexer,
		feed:       feed,
		log:        log,
	}
}

func (s *searchService) Search(ctx context.Context, workspaceID uuid.UUID, text string) ([]SearchResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: query is required", apperrors.ErrBadRequest)
	}

	results := []SearchResult{}
	member, err := lookupMember(ctx, s.workspaces, workspaceID)
	if err != nil || member == nil {
		return results, err
	}

	hits, err := s.indexer.Search(ctx, workspaceID, text, searchLimit)
	if err != nil {
		return nil, err
	}

	for _, hit := range hits {
		message, err := s.messages.GetByID(ctx, hit.MessageID)
		if err != nil {
			// индекс мог отстать от удаления
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if message.WorkspaceID != workspaceID {
			continue
		}

		hydrated, err := s.feed.hydrate(ctx, message)
		if err != nil {
			return nil, err
		}
		if hydrated == nil {
			continue
		}
		results = append(results, SearchResult{Message: hydrated, Snippet: hit.Snippet})
	}

	return results, nil
}
