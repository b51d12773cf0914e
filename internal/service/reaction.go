package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"team_chat/internal/domain"
	"team_chat/internal/repository"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

type ReactionService interface {
	// Toggle ставит реакцию или снимает уже поставленную
	Toggle(ctx context.Context, messageID uuid.UUID, value string) (uuid.UUID, error)
}

type reactionService struct {
	reactions  repository.ReactionRepository
	messages   repository.MessageRepository
	workspaces repository.WorkspaceRepository
	notifier   Notifier
	log        logger.Logger
}

func NewReactionService(repos *repository.Repositories, notifier Notifier, log logger.Logger) ReactionService {
	return &reactionService{
		reactions:  repos.Reaction,
		messages:   repos.Message,
		workspaces: repos.Workspace,
		notifier:   notifier,
		log:        log,
	}
}

func (s *reactionService) Toggle(ctx context.Context, messageID uuid.UUID, value string) (uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" || utf8.RuneCountInString(value) > 64 {
		return uuid.Nil, fmt.Errorf("%w: invalid reaction value", apperrors.ErrBadRequest)
	}

	if _, ok := Identity(ctx); !ok {
		return uuid.Nil, apperrors.ErrUnauthorized
	}

	message, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return uuid.Nil, apperrors.ErrMessageNotFound
		}
		return uuid.Nil, err
	}

	member, err := requireMember(ctx, s.workspaces, message.WorkspaceID)
	if err != nil {
		return uuid.Nil, err
	}

	existing, err := s.reactions.Find(ctx, messageID, member.ID, value)
	switch {
	case err == nil:
		if err := s.reactions.Delete(ctx, existing.ID); err != nil {
			return uuid.Nil, err
		}
		s.notifier.Notify(ctx, domain.FeedEventReactionToggled, message)
		return existing.ID, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return uuid.Nil, err
	}

	reaction := &domain.Reaction{
		ID:          uuid.New(),
		WorkspaceID: message.WorkspaceID,
		MessageID:   messageID,
		MemberID:    member.ID,
		Value:       value,
	}
	if err := s.reactions.Create(ctx, reaction); err != nil {
		return uuid.Nil, err
	}

	s.notifier.Notify(ctx, domain.FeedEventReactionToggled, message)
	return reaction.ID, nil
}
