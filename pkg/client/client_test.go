package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"team_chat/internal/domain"
	apperrors "team_chat/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSendMessageUploadsThenCreates(t *testing.T) {
	messageID := uuid.New()
	var created map[string]interface{}
	var uploaded []byte

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/upload/url":
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, map[string]string{"url": srv.URL + "/api/v1/upload/tok"})
		case "/api/v1/upload/tok":
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			assert.Equal(t, int64(3), r.ContentLength)
			uploaded, _ = io.ReadAll(r.Body)
			writeJSON(w, http.StatusOK, map[string]string{"storage_id": "s1"})
		case "/api/v1/messages":
			require.Equal(t, http.MethodPost, r.Method)
			_ = json.NewDecoder(r.Body).Decode(&created)
			writeJSON(w, http.StatusCreated, map[string]string{"id": messageID.String()})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("secret"))
	ws, ch := uuid.New(), uuid.New()
	id, err := c.SendMessage(context.Background(), CreateMessageParams{WorkspaceID: ws, ChannelID: &ch, Body: "hi"},
		&Attachment{ContentType: "image/png", Size: 3, Body: strings.NewReader("png")})
	require.NoError(t, err)

	assert.Equal(t, messageID, id)
	assert.Equal(t, []byte("png"), uploaded)
	assert.Equal(t, "s1", created["image"])
	assert.Equal(t, ch.String(), created["channel_id"])
	assert.NotContains(t, created, "conversation_id")
}

func TestErrorsMapToSentinels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/upload/tok":
			writeJSON(w, http.StatusGone, map[string]string{"error": "upload url is invalid or already used"})
		case "/api/v1/messages":
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.CreateMessage(context.Background(), CreateMessageParams{Body: "x"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "unauthorized", apiErr.Message)

	_, err = c.RemoveMessage(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestGetMessageNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("null"))
	}))
	defer srv.Close()

	msg, err := New(srv.URL).GetMessage(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestFeedLoadMore(t *testing.T) {
	channel := uuid.New()
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
	}
	pages := map[string]MessagePage{
		"":   {ContinueCursor: "c1"},
		"c1": {ContinueCursor: "c2"},
		"c2": {ContinueCursor: CursorDone, IsDone: true},
	}
	pageIDs := map[string][]uuid.UUID{"": ids[:2], "c1": ids[2:4], "c2": ids[4:]}

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		assert.Equal(t, channel.String(), q.Get("channel_id"))
		assert.Equal(t, "20", q.Get("num_items"))

		cursor := q.Get("cursor")
		page := pages[cursor]
		for _, id := range pageIDs[cursor] {
			page.Page = append(page.Page, &Message{ID: id})
		}
		writeJSON(w, http.StatusOK, page)
	}))
	defer srv.Close()

	feed := New(srv.URL).Feed(FeedQuery{ChannelID: &channel})
	total := 0
	for !feed.Done() {
		n, err := feed.LoadMore(context.Background())
		require.NoError(t, err)
		total += n
	}
	assert.Equal(t, 5, total)
	assert.Equal(t, int32(3), calls.Load())

	n, err := feed.LoadMore(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int32(3), calls.Load())

	var got []uuid.UUID
	for _, m := range feed.Messages() {
		got = append(got, m.ID)
	}
	assert.Equal(t, ids, got)
}

func TestRequestWrapsClientCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"id": "22222222-2222-2222-2222-222222222222"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	update := NewRequest(func(ctx context.Context, body string) (uuid.UUID, error) {
		return c.UpdateMessage(ctx, uuid.New(), body)
	})

	var succeeded uuid.UUID
	_, err := update.Do(context.Background(), "edited", Options[uuid.UUID]{
		OnSuccess: func(id uuid.UUID) { succeeded = id },
	})
	require.NoError(t, err)
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", succeeded.String())
	assert.Equal(t, StatusSucceeded, update.State().Status)
}

func TestMessageDecodesServerPayload(t *testing.T) {
	channel := uuid.New()
	imageURL := "https://cdn.example.com/uploads/a.png"
	stored := "a.png"
	server := &domain.HydratedMessage{
		Message: domain.Message{
			ID: uuid.New(), WorkspaceID: uuid.New(), ChannelID: &channel,
			MemberID: uuid.New(), Body: "hi", Image: &stored,
		},
		Image:  &imageURL,
		Member: &domain.Member{ID: uuid.New(), Role: domain.MemberRoleMember},
		User:   &domain.User{ID: uuid.New(), Name: "Ann", PasswordHash: "secret"},
		Reactions: []domain.ReactionGroup{
			{Value: "👍", Count: 2, MemberIDs: []uuid.UUID{uuid.New(), uuid.New()}},
		},
		ThreadCount:     3,
		ThreadName:      "Bob",
		ThreadTimestamp: 1700000000000,
	}

	data, err := json.Marshal(domain.MessagePage{Page: []*domain.HydratedMessage{server}, ContinueCursor: domain.CursorDone, IsDone: true})
	require.NoError(t, err)

	var page MessagePage
	require.NoError(t, json.Unmarshal(data, &page))
	require.Len(t, page.Page, 1)
	assert.Equal(t, CursorDone, page.ContinueCursor)

	got := page.Page[0]
	assert.Equal(t, server.ID, got.ID)
	assert.Equal(t, &channel, got.ChannelID)
	assert.Equal(t, imageURL, *got.Image)
	assert.Equal(t, "Ann", got.User.Name)
	assert.Equal(t, domain.MemberRoleMember, got.Member.Role)
	require.Len(t, got.Reactions, 1)
	assert.Equal(t, 2, got.Reactions[0].Count)
	assert.Len(t, got.Reactions[0].MemberIDs, 2)
	assert.Equal(t, 3, got.ThreadCount)
	assert.Equal(t, "Bob", got.ThreadName)
	assert.Equal(t, int64(1700000000000), got.ThreadTimestamp)
}
