package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"team_chat/internal/config"
	"team_chat/internal/domain"
	"team_chat/internal/repository"
	"team_chat/internal/search"
	apperrors "team_chat/pkg/errors"
	"team_chat/pkg/logger"
)

// --- messages ---

type fakeMessages struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*domain.Message
	order     []uuid.UUID
	reactions *fakeReactions
	createErr error
}

func (f *fakeMessages) Create(_ context.Context, m *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	f.byID[m.ID] = &cp
	f.order = append(f.order, m.ID)
	return nil
}

func (f *fakeMessages) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMessages) UpdateBody(_ context.Context, id uuid.UUID, body string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	m.Body = body
	m.UpdatedAt = &at
	return nil
}

func (f *fakeMessages) DeleteCascade(_ context.Context, id uuid.UUID) (*repository.CascadeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return nil, apperrors.ErrNotFound
	}

	res := &repository.CascadeResult{}
	for _, mid := range f.order {
		m, ok := f.byID[mid]
		if !ok {
			continue
		}
		if m.ID == id || (m.ParentMessageID != nil && *m.ParentMessageID == id) {
			res.MessageIDs = append(res.MessageIDs, m.ID)
			if m.Image != nil {
				res.Images = append(res.Images, *m.Image)
			}
		}
	}
	for _, mid := range res.MessageIDs {
		delete(f.byID, mid)
		if f.reactions != nil {
			f.reactions.deleteForMessage(mid)
		}
	}
	return res, nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *fakeMessages) ListFeed(_ context.Context, key domain.FeedKey, cursor *domain.MessageCursor, limit int) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.Message
	for _, mid := range f.order {
		m, ok := f.byID[mid]
		if !ok {
			continue
		}
		if !sameID(m.ChannelID, key.ChannelID) || !sameID(m.ParentMessageID, key.ParentMessageID) || !sameID(m.ConversationID, key.ConversationID) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })

	if cursor != nil {
		pivot := &domain.Message{CreatedAt: cursor.CreatedAt, ID: cursor.ID}
		var rest []*domain.Message
		for _, m := range out {
			if newer(pivot, m) {
				rest = append(rest, m)
			}
		}
		out = rest
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newer(a, b *domain.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

// ListReplies отдает ответы в порядке вставки, как неупорядоченный индекс
func (f *fakeMessages) ListReplies(_ context.Context, parentID uuid.UUID) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Message
	for _, mid := range f.order {
		m, ok := f.byID[mid]
		if ok && m.ParentMessageID != nil && *m.ParentMessageID == parentID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeMessages) SearchBody(_ context.Context, workspaceID uuid.UUID, text string, limit int) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Message
	for _, mid := range f.order {
		m, ok := f.byID[mid]
		if ok && m.WorkspaceID == workspaceID && strings.Contains(m.Body, text) && len(out) < limit {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- workspaces ---

type fakeWorkspaces struct {
	mu            sync.Mutex
	workspaces    map[uuid.UUID]*domain.Workspace
	members       map[uuid.UUID]*domain.Member
	channels      map[uuid.UUID]*domain.Channel
	conversations map[uuid.UUID]*domain.Conversation
}

func (f *fakeWorkspaces) GetByID(_ context.Context, id uuid.UUID) (*domain.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.workspaces[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *ws
	return &cp, nil
}

func (f *fakeWorkspaces) UpdateName(_ context.Context, id uuid.UUID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ws, ok := f.workspaces[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	ws.Name = name
	return nil
}

func (f *fakeWorkspaces) GetMember(_ context.Context, workspaceID, userID uuid.UUID) (*domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.WorkspaceID == workspaceID && m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeWorkspaces) GetMemberByID(_ context.Context, memberID uuid.UUID) (*domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[memberID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeWorkspaces) GetChannel(_ context.Context, id uuid.UUID) (*domain.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeWorkspaces) GetConversation(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conversations[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// --- users ---

type fakeUsers struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*domain.User
	sessions map[string]*domain.UserSession
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return apperrors.ErrUserAlreadyExists
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeUsers) CreateSession(_ context.Context, s *domain.UserSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.RefreshTokenHash] = &cp
	return nil
}

func (f *fakeUsers) GetSessionByTokenHash(_ context.Context, hash string) (*domain.UserSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[hash]
	if !ok || s.RevokedAt != nil {
		return nil, apperrors.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeUsers) RevokeSession(_ context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == id {
			now := time.Now()
			s.RevokedAt = &now
			s.RevokedReason = &reason
		}
	}
	return nil
}

// --- reactions ---

type fakeReactions struct {
	mu   sync.Mutex
	rows []domain.Reaction
}

func (f *fakeReactions) ListByMessage(_ context.Context, messageID uuid.UUID) ([]domain.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reaction
	for _, r := range f.rows {
		if r.MessageID == messageID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReactions) Find(_ context.Context, messageID, memberID uuid.UUID, value string) (*domain.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.MessageID == messageID && r.MemberID == memberID && r.Value == value {
			cp := r
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeReactions) Create(_ context.Context, r *domain.Reaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	f.rows = append(f.rows, *r)
	return nil
}

func (f *fakeReactions) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeReactions) deleteForMessage(messageID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.MessageID != messageID {
			kept = append(kept, r)
		}
	}
	f.rows = kept
}

// --- uploads ---

type fakeUploads struct {
	mu   sync.Mutex
	rows map[string]*domain.Upload
}

func (f *fakeUploads) Create(_ context.Context, u *domain.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.rows[u.StorageID] = &cp
	return nil
}

func (f *fakeUploads) Get(_ context.Context, id string) (*domain.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, apperrors.ErrUploadNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUploads) Attach(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return apperrors.ErrUploadNotFound
	}
	if u.AttachedAt != nil {
		return apperrors.ErrUploadAttached
	}
	u.AttachedAt = &at
	return nil
}

func (f *fakeUploads) Detach(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.rows[id]; ok {
		u.AttachedAt = nil
	}
	return nil
}

func (f *fakeUploads) DeleteOrphan(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok || u.AttachedAt != nil {
		return false, nil
	}
	delete(f.rows, id)
	return true, nil
}

func (f *fakeUploads) ListOrphans(context.Context, time.Time, int) ([]*domain.Upload, error) {
	return nil, nil
}

func (f *fakeUploads) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, id)
	return nil
}

// --- audit ---

type fakeAudit struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeAudit) CreateLog(_ context.Context, l *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, l.EventType)
	return nil
}

// --- object storage ---

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeObjects) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeObjects) PresignedURL(_ context.Context, key string) (string, error) {
	return "https://cdn.test/" + key, nil
}

func (f *fakeObjects) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) Ping(context.Context) error { return nil }

func (f *fakeObjects) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// --- search / notifications ---

type fakeIndexer struct {
	mu      sync.Mutex
	indexed []uuid.UUID
	deleted []uuid.UUID
	hits    []search.Hit
}

func (f *fakeIndexer) IndexMessage(m *domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, m.ID)
}

func (f *fakeIndexer) DeleteMessages(ids []uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
}

func (f *fakeIndexer) Search(context.Context, uuid.UUID, string, int) ([]search.Hit, error) {
	return f.hits, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Notify(_ context.Context, eventType string, _ *domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
}

// --- окружение ---

type testEnv struct {
	t          *testing.T
	messages   *fakeMessages
	workspaces *fakeWorkspaces
	users      *fakeUsers
	reactions  *fakeReactions
	uploads    *fakeUploads
	audit      *fakeAudit
	objects    *fakeObjects
	indexer    *fakeIndexer
	notifier   *fakeNotifier
	redis      *miniredis.Miniredis
	repos      *repository.Repositories
	cfg        *config.Config
	clock      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	reactions := &fakeReactions{}
	e := &testEnv{
		t:         t,
		reactions: reactions,
		messages:  &fakeMessages{byID: map[uuid.UUID]*domain.Message{}, reactions: reactions},
		workspaces: &fakeWorkspaces{
			workspaces:    map[uuid.UUID]*domain.Workspace{},
			members:       map[uuid.UUID]*domain.Member{},
			channels:      map[uuid.UUID]*domain.Channel{},
			conversations: map[uuid.UUID]*domain.Conversation{},
		},
		users:    &fakeUsers{byID: map[uuid.UUID]*domain.User{}, sessions: map[string]*domain.UserSession{}},
		uploads:  &fakeUploads{rows: map[string]*domain.Upload{}},
		audit:    &fakeAudit{},
		objects:  &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}},
		indexer:  &fakeIndexer{},
		notifier: &fakeNotifier{},
		redis:    miniredis.RunT(t),
		clock:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		cfg: &config.Config{
			JWT: config.JWTConfig{
				AccessSecret:  "access-secret",
				RefreshSecret: "refresh-secret",
				AccessTTL:     time.Minute,
				RefreshTTL:    time.Hour,
			},
			Storage: config.StorageConfig{
				UploadTokenTTL: 10 * time.Minute,
				MaxUploadBytes: 16,
				PublicBaseURL:  "http://api.test/",
			},
			Feed: config.FeedConfig{JoinConcurrency: 4, DefaultPageSize: 20, MaxPageSize: 100},
		},
	}

	rdb := redis.NewClient(&redis.Options{Addr: e.redis.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.NewNop()
	e.repos = &repository.Repositories{
		User:        e.users,
		Workspace:   e.workspaces,
		Message:     e.messages,
		Reaction:    e.reactions,
		Upload:      e.uploads,
		UploadToken: repository.NewUploadTokenRepository(rdb, log),
		Audit:       e.audit,
		RateLimit:   repository.NewRateLimitRepository(rdb, log),
	}
	return e
}

func (e *testEnv) services() *Services {
	return NewServices(e.repos, e.objects, e.indexer, e.notifier, nil, e.cfg, logger.NewNop())
}

func (e *testEnv) messageService() *messageService {
	s := e.services().Message.(*messageService)
	s.now = e.tick
	return s
}

// tick выдает строго возрастающее время
func (e *testEnv) tick() time.Time {
	e.clock = e.clock.Add(time.Second)
	return e.clock
}

func (e *testEnv) addUser(name string) *domain.User {
	image := "https://avatars.test/" + name
	u := &domain.User{ID: uuid.New(), Email: name + "@example.com", Name: name, Image: &image, IsActive: true}
	e.users.byID[u.ID] = u
	return u
}

func (e *testEnv) addWorkspace(owner *domain.User) (*domain.Workspace, *domain.Member) {
	ws := &domain.Workspace{ID: uuid.New(), Name: "acme", UserID: owner.ID, JoinCode: "abc123"}
	e.workspaces.workspaces[ws.ID] = ws
	return ws, e.addMember(ws, owner, domain.MemberRoleAdmin)
}

func (e *testEnv) addMember(ws *domain.Workspace, u *domain.User, role string) *domain.Member {
	m := &domain.Member{ID: uuid.New(), WorkspaceID: ws.ID, UserID: u.ID, Role: role}
	e.workspaces.members[m.ID] = m
	return m
}

func (e *testEnv) addChannel(ws *domain.Workspace) *domain.Channel {
	ch := &domain.Channel{ID: uuid.New(), WorkspaceID: ws.ID, Name: "general"}
	e.workspaces.channels[ch.ID] = ch
	return ch
}

func (e *testEnv) addConversation(ws *domain.Workspace, a, b *domain.Member) *domain.Conversation {
	c := &domain.Conversation{ID: uuid.New(), WorkspaceID: ws.ID, MemberOneID: a.ID, MemberTwoID: b.ID}
	e.workspaces.conversations[c.ID] = c
	return c
}

func (e *testEnv) addUpload(owner *domain.User) string {
	id := uuid.NewString()
	e.uploads.rows[id] = &domain.Upload{StorageID: id, UserID: owner.ID, ContentType: "image/png", Size: 3}
	e.objects.objects["uploads/"+id] = []byte("png")
	return id
}

func (e *testEnv) addMessage(m *domain.Message) *domain.Message {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = e.tick()
	}
	if m.Body == "" {
		m.Body = "hello"
	}
	_ = e.messages.Create(context.Background(), m)
	return m
}

func as(u *domain.User) context.Context {
	return WithIdentity(context.Background(), u.ID)
}

func reader(s string) io.Reader { return bytes.NewBufferString(s) }
