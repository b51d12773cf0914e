package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"team_chat/internal/domain"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, s
}

func TestUploadTokenConsumeOnce(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewUploadTokenRepository(client, logger.NewNop())
	ctx := context.Background()

	grant := UploadGrant{UserID: uuid.New(), IssuedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, repo.Save(ctx, "tok-1", grant, time.Minute))

	got, err := repo.Consume(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, grant.UserID, got.UserID)

	_, err = repo.Consume(ctx, "tok-1")
	assert.ErrorIs(t, err, apperrors.ErrUploadTokenInvalid)
}

func TestUploadTokenExpires(t *testing.T) {
	client, s := setupTestRedis(t)
	repo := NewUploadTokenRepository(client, logger.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "tok-2", UploadGrant{UserID: uuid.New()}, time.Minute))
	s.FastForward(2 * time.Minute)

	_, err := repo.Consume(ctx, "tok-2")
	assert.ErrorIs(t, err, apperrors.ErrUploadTokenInvalid)
}

func TestRateLimitWindow(t *testing.T) {
	client, s := setupTestRedis(t)
	repo := NewRateLimitRepository(client, logger.NewNop())
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, err := repo.Increment(ctx, "rl:user", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}
	assert.Equal(t, time.Minute, s.TTL("rl:user"))

	s.FastForward(61 * time.Second)

	count, err := repo.Increment(ctx, "rl:user", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestFeedEventsPublishSubscribe(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewFeedEventRepository(client, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workspaceID := uuid.New()
	events, err := repo.Subscribe(ctx, workspaceID)
	require.NoError(t, err)

	channelID := uuid.New()
	msg := &domain.Message{ID: uuid.New(), WorkspaceID: workspaceID, ChannelID: &channelID}
	require.NoError(t, repo.Publish(ctx, domain.NewFeedEvent(domain.FeedEventMessageCreated, msg)))

	// событие другого пространства не должно прийти
	other := &domain.Message{ID: uuid.New(), WorkspaceID: uuid.New()}
	require.NoError(t, repo.Publish(ctx, domain.NewFeedEvent(domain.FeedEventMessageCreated, other)))

	select {
	case ev := <-events:
		assert.Equal(t, domain.FeedEventMessageCreated, ev.Type)
		assert.Equal(t, msg.ID, ev.MessageID)
		require.NotNil(t, ev.ChannelID)
		assert.Equal(t, channelID, *ev.ChannelID)
	case <-time.After(2 * time.Second):
		t.Fatal("feed event not delivered")
	}

	cancel()
	select {
	case _, ok := <-events:
		for ok {
			_, ok = <-events
		}
	case <-time.After(2 * time.Second):
		t.Fatal("events channel not closed after cancel")
	}
}
