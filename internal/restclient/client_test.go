package restclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumchat/internal/domain"
)

func TestNewRejectsBadURLs(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	c, err := New("http://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "ws://example.com/ws/conversations/", c.ListChannelURL())
}

func TestChannelURLSchemes(t *testing.T) {
	c, err := New("https://api.example.com")
	require.NoError(t, err)

	assert.Equal(t, "wss://api.example.com/ws/chat/42/", c.ChatChannelURL("42"))
	assert.Equal(t, "wss://api.example.com/ws/conversations/", c.ListChannelURL())

	plain, err := New("http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws/chat/42/", plain.ChatChannelURL("42"))
}

func TestLoginKeepsSessionCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "alice@example.com", req.Email)
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "s-1", Path: "/"})
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "email": req.Email, "role": "candidate"})
		case "/notifications/websocket-token/":
			cookie, err := r.Cookie("sessionid")
			require.NoError(t, err, "token fetch must carry the session cookie")
			assert.Equal(t, "s-1", cookie.Value)
			json.NewEncoder(w).Encode(map[string]string{"token": "jwt-abc"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	user, err := c.Login(context.Background(), "alice@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCandidate, user.Role)

	token, err := c.WebSocketToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", token)
}

func TestWebSocketTokenEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.WebSocketToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrTokenUnavailable)
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "not a participant"})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.GetConversation(context.Background(), "9")
	require.Error(t, err)

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "not a participant", apiErr.Message)
}

func TestRequestShapes(t *testing.T) {
	type captured struct {
		method, path string
		body         map[string]any
	}
	var got captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = captured{method: r.Method, path: r.URL.Path}
		if r.ContentLength > 0 {
			json.NewDecoder(r.Body).Decode(&got.body)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": 7})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.CreateConversation(ctx, "3", "12")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/conversations/", got.path)
	assert.Equal(t, map[string]any{"forum_id": "3", "recruiter_id": "12"}, got.body)

	_, err = c.UpdateConversationStatus(ctx, "7", domain.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, "/api/conversations/7/status/", got.path)
	assert.Equal(t, map[string]any{"status": "accepted"}, got.body)

	require.NoError(t, c.MarkConversationRead(ctx, "7"))
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/conversations/7/read/", got.path)

	_, err = c.CreateMessage(ctx, "7", "hello")
	require.NoError(t, err)
	assert.Equal(t, "/api/conversations/7/messages/", got.path)
	assert.Equal(t, map[string]any{"content": "hello"}, got.body)
}
