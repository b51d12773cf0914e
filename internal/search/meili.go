package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	meili "github.com/meilisearch/meilisearch-go"
	"team_chat/pkg/logger"
)

// MessageRecord - документ индекса сообщений
type MessageRecord struct {
	ID              string `json:"id"`
	WorkspaceID     string `json:"workspaceId"`
	ChannelID       string `json:"channelId,omitempty"`
	ConversationID  string `json:"conversationId,omitempty"`
	ParentMessageID string `json:"parentMessageId,omitempty"`
	Text            string `json:"text"`
	CreatedAt       int64  `json:"createdAt"`
}

// Meili - индекс сообщений в Meilisearch
type Meili struct {
	client  meili.ServiceManager
	index   string
	healthy atomic.Bool
	done    chan struct{}
	log     logger.Logger
}

// NewMeili не падает, если Meilisearch недоступен: поиск уйдет в БД,
// пока фоновая проверка не увидит сервис снова.
func NewMeili(url, apiKey, index string, log logger.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		index:  index,
		done:   make(chan struct{}),
		log:    log,
	}

	if _, err := m.client.Health(); err != nil {
		log.Warn("Meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        m.index,
		PrimaryKey: "id",
	}); err != nil {
		m.log.Debug("Create index (may already exist)", "index", m.index, "error", err)
	}

	index := m.client.Index(m.index)
	filterable := []interface{}{"workspaceId", "channelId", "conversationId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.log.Warn("Failed to update filterable attributes", "index", m.index, "error", err)
	}
	searchable := []string{"text"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.log.Warn("Failed to update searchable attributes", "index", m.index, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.log.Info("Meilisearch recovered, reconfiguring index", "index", m.index)
				m.configureIndex()
			}
		}
	}
}

func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(workspaceID uuid.UUID, text string, limit int) ([]Hit, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID:              m.index,
			Query:                 text,
			Limit:                 int64(limit),
			Filter:                []string{fmt.Sprintf("workspaceId = %q", workspaceID.String())},
			AttributesToHighlight: []string{"text"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
		}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	var hits []Hit
	for _, sr := range resp.Results {
		for _, hit := range sr.Hits {
			id, err := uuid.Parse(decodeString(hit, "id"))
			if err != nil {
				continue
			}
			snippet := decodeFormattedString(hit, "text")
			if snippet == "" {
				snippet = decodeString(hit, "text")
			}
			hits = append(hits, Hit{MessageID: id, Snippet: snippet})
		}
	}
	return hits, nil
}

func (m *Meili) Index(record MessageRecord) error {
	_, err := m.client.Index(m.index).AddDocuments([]MessageRecord{record}, nil)
	return err
}

func (m *Meili) Delete(ids []string) error {
	index := m.client.Index(m.index)
	for _, id := range ids {
		if _, err := index.DeleteDocument(id, nil); err != nil {
			return err
		}
	}
	return nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(formatted[key], &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
