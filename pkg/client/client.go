package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "team_chat/pkg/errors"
)

// Client - типизированные вызовы HTTP API чата
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) authToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Error - ответ API со статусом не 2xx. errors.Is сопоставляет его с ошибками pkg/errors.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusBadRequest:
		return apperrors.ErrBadRequest
	case http.StatusConflict:
		return apperrors.ErrConflict
	case http.StatusGone:
		return apperrors.ErrUploadTokenInvalid
	case http.StatusUnsupportedMediaType:
		return apperrors.ErrUnsupportedMedia
	case http.StatusRequestEntityTooLarge:
		return apperrors.ErrTooLarge
	case http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return apperrors.ErrUpstream
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.authToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type idResponse struct {
	ID uuid.UUID `json:"id"`
}

// --- auth ---

type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Session struct {
	User *User `json:"user"`
	Tokens
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*User, error) {
	var user User
	in := map[string]string{"email": email, "password": password, "name": name}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", nil, in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login запоминает access токен для следующих вызовов
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, in, &session); err != nil {
		return nil, err
	}
	c.SetToken(session.AccessToken)
	return &session, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	var tokens Tokens
	in := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/refresh", nil, in, &tokens); err != nil {
		return nil, err
	}
	c.SetToken(tokens.AccessToken)
	return &tokens, nil
}

func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	in := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, in, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// --- messages ---

type CreateMessageParams struct {
	WorkspaceID     uuid.UUID  `json:"workspace_id"`
	Body            string     `json:"body"`
	Image           *string    `json:"image,omitempty"`
	ChannelID       *uuid.UUID `json:"channel_id,omitempty"`
	ConversationID  *uuid.UUID `json:"conversation_id,omitempty"`
	ParentMessageID *uuid.UUID `json:"parent_message_id,omitempty"`
}

func (c *Client) CreateMessage(ctx context.Context, p CreateMessageParams) (uuid.UUID, error) {
	var out idResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages", nil, p, &out); err != nil {
		return uuid.Nil, err
	}
	return out.ID, nil
}

func (c *Client) UpdateMessage(ctx context.Context, id uuid.UUID, body string) (uuid.UUID, error) {
	var out idResponse
	in := map[string]string{"body": body}
	if err := c.do(ctx, http.MethodPatch, "/api/v1/messages/"+id.String(), nil, in, &out); err != nil {
		return uuid.Nil, err
	}
	return out.ID, nil
}

func (c *Client) RemoveMessage(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out idResponse
	if err := c.do(ctx, http.MethodDelete, "/api/v1/messages/"+id.String(), nil, nil, &out); err != nil {
		return uuid.Nil, err
	}
	return out.ID, nil
}

// GetMessage возвращает nil, если сообщение скрыто или удалено
func (c *Client) GetMessage(ctx context.Context, id uuid.UUID) (*Message, error) {
	var out *Message
	if err := c.do(ctx, http.MethodGet, "/api/v1/messages/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetMessages(ctx context.Context, q FeedQuery) (*MessagePage, error) {
	query := url.Values{}
	if q.ChannelID != nil {
		query.Set("channel_id", q.ChannelID.String())
	}
	if q.ConversationID != nil {
		query.Set("conversation_id", q.ConversationID.String())
	}
	if q.ParentMessageID != nil {
		query.Set("parent_message_id", q.ParentMessageID.String())
	}
	if q.Cursor != "" {
		query.Set("cursor", q.Cursor)
	}
	if q.NumItems > 0 {
		query.Set("num_items", strconv.Itoa(q.NumItems))
	}

	var page MessagePage
	if err := c.do(ctx, http.MethodGet, "/api/v1/messages", query, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) ToggleReaction(ctx context.Context, messageID uuid.UUID, value string) (uuid.UUID, error) {
	var out idResponse
	in := map[string]string{"value": value}
	if err := c.do(ctx, http.MethodPost, "/api/v1/messages/"+messageID.String()+"/reactions", nil, in, &out); err != nil {
		return uuid.Nil, err
	}
	return out.ID, nil
}

// --- workspaces ---

func (c *Client) GetWorkspace(ctx context.Context, id uuid.UUID) (*Workspace, error) {
	var out *Workspace
	if err := c.do(ctx, http.MethodGet, "/api/v1/workspaces/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetWorkspaceInfo(ctx context.Context, id uuid.UUID) (*WorkspaceInfo, error) {
	var out *WorkspaceInfo
	if err := c.do(ctx, http.MethodGet, "/api/v1/workspaces/"+id.String()+"/info", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateWorkspace(ctx context.Context, id uuid.UUID, name string) (uuid.UUID, error) {
	var out idResponse
	in := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPatch, "/api/v1/workspaces/"+id.String(), nil, in, &out); err != nil {
		return uuid.Nil, err
	}
	return out.ID, nil
}

type SearchResult struct {
	Message *Message `json:"message"`
	Snippet string                  `json:"snippet"`
}

func (c *Client) Search(ctx context.Context, workspaceID uuid.UUID, text string) ([]SearchResult, error) {
	var out struct {
		Results []SearchResult `json:"results"`
	}
	query := url.Values{"q": []string{text}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/workspaces/"+workspaceID.String()+"/search", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// --- uploads ---

// Attachment - файл для UploadFile. Size < 0, если размер неизвестен.
type Attachment struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

func (c *Client) GenerateUploadURL(ctx context.Context) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/upload/url", nil, nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// UploadFile получает одноразовый URL, отправляет на него файл и возвращает storage id
func (c *Client) UploadFile(ctx context.Context, file Attachment) (string, error) {
	uploadURL, err := c.GenerateUploadURL(ctx)
	if err != nil {
		return "", fmt.Errorf("generate upload url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, file.Body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", file.ContentType)
	if file.Size >= 0 {
		req.ContentLength = file.Size
	}

	var out struct {
		StorageID string `json:"storage_id"`
	}
	if err := c.send(req, &out); err != nil {
		return "", err
	}
	return out.StorageID, nil
}

// SendMessage загружает вложение, если оно есть, и создает сообщение с ним
func (c *Client) SendMessage(ctx context.Context, p CreateMessageParams, image *Attachment) (uuid.UUID, error) {
	if image != nil {
		storageID, err := c.UploadFile(ctx, *image)
		if err != nil {
			return uuid.Nil, err
		}
		p.Image = &storageID
	}
	return c.CreateMessage(ctx, p)
}
