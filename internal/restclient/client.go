// Package restclient is the REST façade of the chat client: conventional
// CRUD for conversations and messages, used for initial loads and as the
// fallback send path, plus issuance of the short-lived WebSocket token. All
// calls ride the ambient session cookie; the WebSocket token is only ever a
// query credential on the socket upgrade.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"forumchat/internal/domain"
)

// Client talks to the forum-recruitment API. The WebSocket channel URLs are
// derived from the REST base URL: ws for http, wss for https.
type Client struct {
	base *url.URL
	http *http.Client
}

// New creates a client for the given base URL, e.g. "https://api.example.com".
func New(baseURL string) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	return &Client{
		base: u,
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
	}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with email and password; the session cookie is kept
// in the client's jar for all subsequent calls.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	var user domain.User
	err := c.do(ctx, http.MethodPost, "/api/auth/login", loginRequest{Email: email, Password: password}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout invalidates the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the authenticated viewer.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// WebSocketToken fetches a fresh scoped token for a WebSocket upgrade.
// Tokens are short-lived and requested immediately before each connection
// attempt.
func (c *Client) WebSocketToken(ctx context.Context) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodGet, "/notifications/websocket-token/", nil, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", domain.ErrTokenUnavailable
	}
	return resp.Token, nil
}

// ListConversations fetches the viewer's conversation summaries.
func (c *Client) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/conversations/", nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// GetConversation fetches a single conversation summary.
func (c *Client) GetConversation(ctx context.Context, id domain.ID) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/conversations/%s/", id), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

type conversationCreateRequest struct {
	ForumID     domain.ID `json:"forum_id"`
	RecruiterID domain.ID `json:"recruiter_id"`
}

// CreateConversation opens a candidate-initiated conversation with a
// recruiter on the given forum.
func (c *Client) CreateConversation(ctx context.Context, forumID, recruiterID domain.ID) (*domain.Conversation, error) {
	var conv domain.Conversation
	req := conversationCreateRequest{ForumID: forumID, RecruiterID: recruiterID}
	if err := c.do(ctx, http.MethodPost, "/api/conversations/", req, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

type statusUpdateRequest struct {
	Status domain.ConversationStatus `json:"status"`
}

// UpdateConversationStatus moves a conversation to accepted or rejected.
func (c *Client) UpdateConversationStatus(ctx context.Context, id domain.ID, status domain.ConversationStatus) (*domain.Conversation, error) {
	var conv domain.Conversation
	path := fmt.Sprintf("/api/conversations/%s/status/", id)
	if err := c.do(ctx, http.MethodPatch, path, statusUpdateRequest{Status: status}, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// MarkConversationRead marks every counterpart message in the conversation
// as read.
func (c *Client) MarkConversationRead(ctx context.Context, id domain.ID) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/conversations/%s/read/", id), nil, nil)
}

// ListMessages fetches the conversation history, ascending by creation
// time.
func (c *Client) ListMessages(ctx context.Context, conversationID domain.ID) ([]domain.Message, error) {
	var msgs []domain.Message
	path := fmt.Sprintf("/api/conversations/%s/messages/", conversationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

type messageCreateRequest struct {
	Content string `json:"content"`
}

// CreateMessage sends a message over REST. This is the fallback path when
// the socket send fails; the server broadcasts the created message on the
// conversation channel either way.
func (c *Client) CreateMessage(ctx context.Context, conversationID domain.ID, content string) (*domain.Message, error) {
	var msg domain.Message
	path := fmt.Sprintf("/api/conversations/%s/messages/", conversationID)
	if err := c.do(ctx, http.MethodPost, path, messageCreateRequest{Content: content}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ChatChannelURL returns the WebSocket URL of one conversation's message
// channel, without credentials.
func (c *Client) ChatChannelURL(conversationID domain.ID) string {
	return c.wsURL(fmt.Sprintf("/ws/chat/%s/", conversationID))
}

// ListChannelURL returns the WebSocket URL of the viewer's conversation-list
// channel, without credentials.
func (c *Client) ListChannelURL() string {
	return c.wsURL("/ws/conversations/")
}

func (c *Client) wsURL(path string) string {
	scheme := "ws"
	if c.base.Scheme == "https" {
		scheme = "wss"
	}
	return scheme + "://" + c.base.Host + path
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
