// Package hub is the server side of the chat WebSocket protocol: it tracks
// live connections per conversation channel and per user list channel, and
// fans out frames to them.
package hub

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub manages active WebSocket connections. Conversation-channel
// connections are keyed by conversation id (with the owning user recorded
// per connection, so typing frames can skip the sender); list-channel
// connections are keyed by user id.
type Hub struct {
	mu    sync.RWMutex
	convs map[int64]map[*websocket.Conn]int64
	lists map[int64]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		convs: make(map[int64]map[*websocket.Conn]int64),
		lists: make(map[int64]map[*websocket.Conn]struct{}),
	}
}

// RegisterConversation adds a user's connection to a conversation channel.
func (h *Hub) RegisterConversation(conversationID, userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.convs[conversationID] == nil {
		h.convs[conversationID] = make(map[*websocket.Conn]int64)
	}
	h.convs[conversationID][conn] = userID
}

// UnregisterConversation removes a connection from a conversation channel.
func (h *Hub) UnregisterConversation(conversationID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.convs[conversationID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.convs, conversationID)
		}
	}
}

// RegisterList adds a user's list-channel connection.
func (h *Hub) RegisterList(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.lists[userID] == nil {
		h.lists[userID] = make(map[*websocket.Conn]struct{})
	}
	h.lists[userID][conn] = struct{}{}
}

// UnregisterList removes a user's list-channel connection.
func (h *Hub) UnregisterList(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.lists[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.lists, userID)
		}
	}
}

// BroadcastConversation sends the payload to every connection on the
// conversation channel. When exceptUserID is non-zero, that user's
// connections are skipped (used for typing indicators). Connections that
// fail are closed; removal happens on their read-loop exit.
func (h *Hub) BroadcastConversation(conversationID, exceptUserID int64, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, uid := range h.convs[conversationID] {
		if exceptUserID != 0 && uid == exceptUserID {
			continue
		}
		if err := conn.WriteJSON(payload); err != nil {
			conn.Close()
		}
	}
}

// SendList sends the payload to all of one user's list-channel connections.
func (h *Hub) SendList(userID int64, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.lists[userID] {
		if err := conn.WriteJSON(payload); err != nil {
			conn.Close()
		}
	}
}
