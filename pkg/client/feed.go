package client

import (
	"context"
	"sync"
)

// FeedBatchSize - размер страницы ленты по умолчанию
const FeedBatchSize = 20

// Feed накапливает страницы ленты, LoadMore догружает следующую
type Feed struct {
	client *Client
	query  FeedQuery

	mu       sync.Mutex
	messages []*Message
	cursor   string
	done     bool
}

func (c *Client) Feed(q FeedQuery) *Feed {
	if q.NumItems <= 0 {
		q.NumItems = FeedBatchSize
	}
	q.Cursor = ""
	return &Feed{client: c, query: q}
}

// LoadMore возвращает число новых сообщений. После последней страницы ничего не запрашивает.
func (f *Feed) LoadMore(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.done {
		return 0, nil
	}

	q := f.query
	q.Cursor = f.cursor
	page, err := f.client.GetMessages(ctx, q)
	if err != nil {
		return 0, err
	}

	f.messages = append(f.messages, page.Page...)
	f.cursor = page.ContinueCursor
	f.done = page.IsDone || page.ContinueCursor == CursorDone
	return len(page.Page), nil
}

func (f *Feed) Messages() []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Message, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *Feed) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}
