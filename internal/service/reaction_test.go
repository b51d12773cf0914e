package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"team_chat/internal/domain"
	apperrors "team_chat/pkg/errors"
)

func TestToggleAddsThenRemoves(t *testing.T) {
	f := newMessageFixture(t)
	msg := f.e.addMessage(&domain.Message{WorkspaceID: f.ws.ID, ChannelID: &f.channel.ID, MemberID: f.annM.ID})
	svc := f.e.services().Reaction
	ctx := context.Background()

	added, err := svc.Toggle(as(f.bob), msg.ID, " 👍 ")
	require.NoError(t, err)

	rows, _ := f.e.reactions.ListByMessage(ctx, msg.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, added, rows[0].ID)
	assert.Equal(t, "👍", rows[0].Value)
	assert.Equal(t, f.bobM.ID, rows[0].MemberID)
	assert.Equal(t, f.ws.ID, rows[0].WorkspaceID)

	removed, err := svc.Toggle(as(f.bob), msg.ID, "👍")
	require.NoError(t, err)
	assert.Equal(t, added, removed)

	rows, _ = f.e.reactions.ListByMessage(ctx, msg.ID)
	assert.Empty(t, rows)
	assert.Equal(t, []string{domain.FeedEventReactionToggled, domain.FeedEventReactionToggled}, f.e.notifier.events)
}

func TestToggleIsPerMember(t *testing.T) {
	f := newMessageFixture(t)
	msg := f.e.addMessage(&domain.Message{WorkspaceID: f.ws.ID, ChannelID: &f.channel.ID, MemberID: f.annM.ID})
	svc := f.e.services().Reaction

	_, err := svc.Toggle(as(f.bob), msg.ID, "🎉")
	require.NoError(t, err)
	_, err = svc.Toggle(as(f.ann), msg.ID, "🎉")
	require.NoError(t, err)

	rows, _ := f.e.reactions.ListByMessage(context.Background(), msg.ID)
	groups := DedupeReactions(rows)
	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, []uuid.UUID{f.bobM.ID, f.annM.ID}, groups[0].MemberIDs)
}

func TestToggleErrors(t *testing.T) {
	f := newMessageFixture(t)
	msg := f.e.addMessage(&domain.Message{WorkspaceID: f.ws.ID, ChannelID: &f.channel.ID, MemberID: f.annM.ID})
	svc := f.e.services().Reaction

	cases := []struct {
		name  string
		ctx   context.Context
		id    uuid.UUID
		value string
		want  error
	}{
		{"empty value", as(f.bob), msg.ID, "   ", apperrors.ErrBadRequest},
		{"anonymous", context.Background(), msg.ID, "👍", apperrors.ErrUnauthorized},
		{"missing message", as(f.bob), uuid.New(), "👍", apperrors.ErrMessageNotFound},
		{"non member", as(f.e.addUser("eve")), msg.ID, "👍", apperrors.ErrUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Toggle(tc.ctx, tc.id, tc.value)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
