package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumchat/internal/chat"
	"forumchat/internal/config"
	"forumchat/internal/domain"
	"forumchat/internal/hub"
	"forumchat/internal/restclient"
	"forumchat/internal/security"
	"forumchat/internal/store/sqlite"
)

func newTestServer(t *testing.T) string {
	t.Helper()

	cfg := &config.Config{
		Env:                 "test",
		JWTSecret:           "test-jwt-secret",
		EncryptKey:          "test-encryption-key",
		CORSOrigins:         []string{"http://localhost:3000"},
		MessageHistoryLimit: 200,
	}

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.Migrate(db))

	encryptor, err := security.NewEncryptor([]byte(cfg.EncryptKey))
	require.NoError(t, err)

	router := NewRouter(cfg, db, hub.NewHub(),
		security.NewTokenService(cfg.JWTSecret, time.Minute),
		security.NewPasswordHasher(4),
		encryptor,
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv.URL
}

// register creates an account through the public endpoint and returns its id.
func register(t *testing.T, baseURL, email, name string, role domain.Role, company string) int64 {
	t.Helper()
	body, err := json.Marshal(map[string]string{
		"email": email, "name": name, "role": string(role),
		"company_name": company, "password": "password123",
	})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/api/auth/register", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	require.NotZero(t, user.ID)
	return user.ID
}

func login(t *testing.T, baseURL, email string) *restclient.Client {
	t.Helper()
	c, err := restclient.New(baseURL)
	require.NoError(t, err)
	_, err = c.Login(context.Background(), email, "password123")
	require.NoError(t, err)
	return c
}

// waitOnline waits until the given offline check flips to connected, then
// gives the server a moment to register the connection on the hub.
func waitOnline(t *testing.T, offline func() bool) {
	t.Helper()
	require.Eventually(t, func() bool { return !offline() }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
}

func TestHealth(t *testing.T) {
	baseURL := newTestServer(t)

	resp, err := http.Get(baseURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	baseURL := newTestServer(t)
	register(t, baseURL, "alice@example.com", "Alice", domain.RoleCandidate, "")

	c := login(t, baseURL, "alice@example.com")
	ctx := context.Background()

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.Email)

	token, err := c.WebSocketToken(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	require.NoError(t, c.Logout(ctx))
	_, err = c.Me(ctx)
	assert.Error(t, err, "session is gone after logout")
}

func TestWebSocketRequiresToken(t *testing.T) {
	baseURL := newTestServer(t)
	wsBase := "ws" + strings.TrimPrefix(baseURL, "http")

	for _, target := range []string{
		wsBase + "/ws/conversations/",
		wsBase + "/ws/conversations/?token=garbage",
		wsBase + "/ws/chat/1/",
	} {
		conn, resp, err := websocket.DefaultDialer.Dial(target, nil)
		require.Error(t, err, target)
		if conn != nil {
			conn.Close()
		}
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, target)
	}
}

func TestChatSocketMembership(t *testing.T) {
	baseURL := newTestServer(t)
	register(t, baseURL, "alice@example.com", "Alice", domain.RoleCandidate, "")
	recruiterID := register(t, baseURL, "bob@acme.example", "Bob", domain.RoleRecruiter, "ACME Corp")
	register(t, baseURL, "eve@example.com", "Eve", domain.RoleCandidate, "")

	alice := login(t, baseURL, "alice@example.com")
	eve := login(t, baseURL, "eve@example.com")
	ctx := context.Background()

	conv, err := alice.CreateConversation(ctx, "1", domain.IDFromInt64(recruiterID))
	require.NoError(t, err)

	token, err := eve.WebSocketToken(ctx)
	require.NoError(t, err)

	target := fmt.Sprintf("%s?token=%s", eve.ChatChannelURL(conv.ID), token)
	conn, resp, err := websocket.DefaultDialer.Dial(target, nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// A non-participant cannot read the history over REST either.
	_, err = eve.ListMessages(ctx, conv.ID)
	assert.Error(t, err)
}

func TestChatEndToEnd(t *testing.T) {
	baseURL := newTestServer(t)
	candidateID := register(t, baseURL, "alice@example.com", "Alice", domain.RoleCandidate, "")
	recruiterID := register(t, baseURL, "bob@acme.example", "Bob", domain.RoleRecruiter, "ACME Corp")

	alice := login(t, baseURL, "alice@example.com")
	bob := login(t, baseURL, "bob@acme.example")
	ctx := context.Background()

	// The recruiter's inbox is online before the candidate reaches out, so
	// the new conversation arrives as a push, not a re-fetch.
	bobInbox := chat.NewInbox(bob)
	require.NoError(t, bobInbox.Open(ctx))
	defer bobInbox.Close()
	waitOnline(t, bobInbox.Offline)

	aliceInbox := chat.NewInbox(alice)
	require.NoError(t, aliceInbox.Open(ctx))
	defer aliceInbox.Close()
	waitOnline(t, aliceInbox.Offline)

	conv, err := aliceInbox.Start(ctx, "1", domain.IDFromInt64(recruiterID))
	require.NoError(t, err)
	require.NotNil(t, conv.Company)
	assert.Equal(t, "ACME Corp", conv.Company.Name, "the candidate sees the company, not the recruiter")

	require.Eventually(t, func() bool {
		_, ok := bobInbox.Get(conv.ID)
		return ok
	}, 2*time.Second, 10*time.Millisecond, "pending conversation reaches the recruiter's inbox")

	pushed, _ := bobInbox.Get(conv.ID)
	require.NotNil(t, pushed.Candidate)
	assert.Equal(t, "Alice", pushed.Candidate.Name, "the recruiter sees the candidate")
	assert.Equal(t, domain.StatusPending, pushed.Status)

	// Both sides open the conversation channel.
	aliceChat := chat.NewClient(alice, domain.Participant{ID: domain.IDFromInt64(candidateID), Name: "Alice"}, conv.ID)
	require.NoError(t, aliceChat.Open(ctx))
	defer aliceChat.Close()
	waitOnline(t, aliceChat.Offline)

	bobChat := chat.NewClient(bob, domain.Participant{ID: domain.IDFromInt64(recruiterID), Name: "Bob"}, conv.ID)
	require.NoError(t, bobChat.Open(ctx))
	defer bobChat.Close()
	waitOnline(t, bobChat.Offline)

	t.Run("typing indicator", func(t *testing.T) {
		aliceChat.Typing()
		require.Eventually(t, func() bool {
			names := bobChat.TypingNames()
			return len(names) == 1 && names[0] == "Alice"
		}, 2*time.Second, 10*time.Millisecond)

		assert.Empty(t, aliceChat.TypingNames(), "typing signals are never echoed to the sender")

		require.Eventually(t, func() bool {
			return len(bobChat.TypingNames()) == 0
		}, 5*time.Second, 10*time.Millisecond, "the debounced stop signal clears the indicator")
	})

	t.Run("socket send with optimistic confirm", func(t *testing.T) {
		temp, err := aliceChat.Send(ctx, "Hi, I saw your booth at the forum")
		require.NoError(t, err)
		assert.True(t, temp.IsTemp(), "the socket path returns the provisional entry")

		require.Eventually(t, func() bool {
			msgs := bobChat.Messages()
			return len(msgs) == 1 && msgs[0].Content == "Hi, I saw your booth at the forum"
		}, 2*time.Second, 10*time.Millisecond)

		// The sender's echo replaced the optimistic entry with the
		// confirmed one.
		require.Eventually(t, func() bool {
			msgs := aliceChat.Messages()
			return len(msgs) == 1 && !msgs[0].IsTemp()
		}, 2*time.Second, 10*time.Millisecond)

		assert.Equal(t, "Alice", bobChat.Messages()[0].SenderName)
	})

	t.Run("list updates follow the message", func(t *testing.T) {
		require.Eventually(t, func() bool {
			c, ok := bobInbox.Get(conv.ID)
			return ok && c.UnreadCount == 1 && c.LastMessage != nil
		}, 2*time.Second, 10*time.Millisecond)

		c, _ := bobInbox.Get(conv.ID)
		assert.Equal(t, "Hi, I saw your booth at the forum", c.LastMessage.Content)
	})

	t.Run("recruiter accepts", func(t *testing.T) {
		require.NoError(t, bobInbox.Accept(ctx, conv.ID))

		require.Eventually(t, func() bool {
			c, ok := aliceInbox.Get(conv.ID)
			return ok && c.Status == domain.StatusAccepted
		}, 2*time.Second, 10*time.Millisecond, "the status change is pushed to the candidate")

		// Terminal states stay terminal.
		err := bobInbox.Reject(ctx, conv.ID)
		require.Error(t, err)
	})

	t.Run("mark read clears the badge", func(t *testing.T) {
		require.NoError(t, bobChat.MarkRead(ctx))

		require.Eventually(t, func() bool {
			c, ok := bobInbox.Get(conv.ID)
			return ok && c.UnreadCount == 0
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("history survives a fresh load", func(t *testing.T) {
		reloaded := chat.NewClient(alice, domain.Participant{ID: domain.IDFromInt64(candidateID), Name: "Alice"}, conv.ID)
		require.NoError(t, reloaded.Open(ctx))
		defer reloaded.Close()

		msgs := reloaded.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "Hi, I saw your booth at the forum", msgs[0].Content, "content is stored encrypted but served decrypted")
	})
}

func TestRESTFallbackSend(t *testing.T) {
	baseURL := newTestServer(t)
	register(t, baseURL, "alice@example.com", "Alice", domain.RoleCandidate, "")
	recruiterID := register(t, baseURL, "bob@acme.example", "Bob", domain.RoleRecruiter, "ACME Corp")

	alice := login(t, baseURL, "alice@example.com")
	bob := login(t, baseURL, "bob@acme.example")
	ctx := context.Background()

	conv, err := alice.CreateConversation(ctx, "1", domain.IDFromInt64(recruiterID))
	require.NoError(t, err)

	// The recruiter is connected over the socket; the candidate never
	// opens one and sends through REST.
	bobChat := chat.NewClient(bob, domain.Participant{ID: domain.IDFromInt64(recruiterID), Name: "Bob"}, conv.ID)
	require.NoError(t, bobChat.Open(ctx))
	defer bobChat.Close()
	waitOnline(t, bobChat.Offline)

	msg, err := alice.CreateMessage(ctx, conv.ID, "sent while offline")
	require.NoError(t, err)
	assert.False(t, msg.IsTemp(), "REST returns the confirmed message")

	require.Eventually(t, func() bool {
		msgs := bobChat.Messages()
		return len(msgs) == 1 && msgs[0].Content == "sent while offline"
	}, 2*time.Second, 10*time.Millisecond, "REST sends are broadcast on the conversation channel too")
}
