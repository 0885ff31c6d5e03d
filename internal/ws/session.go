// Package ws implements the client side of the chat WebSocket protocol: one
// Session per logical channel (a single conversation's messages, or the
// viewer's conversation-list updates), owning the full connection lifecycle
// including token-authenticated dial, inbound dispatch, bounded reconnect,
// and teardown.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"forumchat/internal/domain"
)

// State is the connection lifecycle state of a Session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

const (
	defaultMaxRetries = 5
	defaultRetryDelay = 3 * time.Second
)

// TokenProvider issues a short-lived, scoped credential for the WebSocket
// upgrade. A fresh token is requested before every connection attempt;
// tokens are not assumed durable across attempts.
type TokenProvider interface {
	WebSocketToken(ctx context.Context) (string, error)
}

type subscriber struct {
	id int
	fn func(domain.Frame)
}

// Session owns exactly one WebSocket connection lifecycle for a single
// logical channel. Creating a second Session for the same channel before
// disconnecting the first is a caller error.
type Session struct {
	channelURL string
	tokens     TokenProvider
	dialer     *websocket.Dialer

	retryDelay time.Duration
	maxRetries int

	// wmu serializes frame writes; gorilla connections allow at most one
	// concurrent writer.
	wmu sync.Mutex

	mu         sync.Mutex
	state      State
	conn       *websocket.Conn
	retries    int
	retryTimer *time.Timer
	gen        int
	subs       []subscriber
	nextSubID  int
}

// NewSession creates a session for the given channel URL (ws:// or wss://,
// without credentials). The token is appended as a query parameter at dial
// time.
func NewSession(channelURL string, tokens TokenProvider) *Session {
	return &Session{
		channelURL: channelURL,
		tokens:     tokens,
		dialer:     websocket.DefaultDialer,
		retryDelay: defaultRetryDelay,
		maxRetries: defaultMaxRetries,
		state:      StateDisconnected,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected reports whether the session currently holds a live socket.
func (s *Session) Connected() bool {
	return s.State() == StateConnected
}

// Subscribe registers fn to receive every inbound frame, in arrival order,
// and returns a func that removes the subscription. Frames are delivered on
// the session's read goroutine; handlers must not block.
func (s *Session) Subscribe(fn func(domain.Frame)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Connect fetches a fresh token and opens the socket. It returns an error
// without dialing when no token is obtainable, and refuses to start a second
// attempt while one is already connecting or connected. A dial failure
// counts as an abnormal closure and enters the reconnect policy.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateConnecting || s.state == StateConnected {
		s.mu.Unlock()
		return domain.ErrAlreadyConnected
	}
	s.state = StateConnecting
	gen := s.gen
	s.mu.Unlock()

	return s.connect(ctx, gen)
}

func (s *Session) connect(ctx context.Context, gen int) error {
	token, err := s.tokens.WebSocketToken(ctx)
	if err != nil {
		log.Printf("ws: token fetch for %s: %v", s.channelURL, err)
		s.mu.Lock()
		if gen == s.gen {
			s.state = StateDisconnected
		}
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", domain.ErrTokenUnavailable, err)
	}

	conn, _, err := s.dialer.DialContext(ctx, s.credentialURL(token), nil)
	if err != nil {
		log.Printf("ws: dial %s: %v", s.channelURL, err)
		s.scheduleReconnect(gen)
		return err
	}

	s.mu.Lock()
	if gen != s.gen {
		// Disconnected while dialing; the new socket is ours to discard.
		s.mu.Unlock()
		conn.Close()
		return domain.ErrNotConnected
	}
	s.conn = conn
	s.state = StateConnected
	s.retries = 0
	s.mu.Unlock()

	go s.readLoop(conn, gen)
	return nil
}

// Send writes a frame to the socket. It fails fast with ErrNotConnected
// while the session is not connected and never queues payloads; callers are
// expected to fall back to REST.
func (s *Session) Send(v any) error {
	s.mu.Lock()
	if s.state != StateConnected || s.conn == nil {
		s.mu.Unlock()
		return domain.ErrNotConnected
	}
	conn := s.conn
	s.mu.Unlock()

	s.wmu.Lock()
	defer s.wmu.Unlock()
	return conn.WriteJSON(v)
}

// Disconnect is idempotent: it cancels any pending reconnect, closes the
// socket with a normal-closure code, and leaves the session disconnected.
// Safe to call before ever connecting.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.gen++
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	conn := s.conn
	s.conn = nil
	s.retries = 0
	s.state = StateDisconnected
	s.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
	}
}

func (s *Session) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			s.handleClose(err, gen)
			return
		}
		s.dispatch(data)
	}
}

func (s *Session) handleClose(err error, gen int) {
	s.mu.Lock()
	if gen != s.gen {
		// Closed by an explicit Disconnect; nothing left to do.
		s.mu.Unlock()
		return
	}
	s.conn = nil
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		s.state = StateDisconnected
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	log.Printf("ws: %s closed: %v", s.channelURL, err)
	s.scheduleReconnect(gen)
}

// scheduleReconnect applies the retry policy: a fixed delay between
// attempts, a hard ceiling, and a fresh token per attempt. Beyond the
// ceiling the session gives up silently.
func (s *Session) scheduleReconnect(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	if s.retries >= s.maxRetries {
		s.state = StateDisconnected
		log.Printf("ws: giving up on %s after %d attempts", s.channelURL, s.maxRetries)
		return
	}
	s.retries++
	s.state = StateReconnecting
	attempt := s.retries
	s.retryTimer = time.AfterFunc(s.retryDelay, func() {
		s.mu.Lock()
		if gen != s.gen || s.state != StateReconnecting {
			s.mu.Unlock()
			return
		}
		s.state = StateConnecting
		s.mu.Unlock()
		if err := s.connect(context.Background(), gen); err != nil {
			log.Printf("ws: reconnect attempt %d for %s: %v", attempt, s.channelURL, err)
		}
	})
}

// dispatch decodes an inbound frame and fans it out to subscribers in
// arrival order. Malformed frames are logged and dropped without touching
// connection state; error frames are logged and forwarded (non-fatal).
func (s *Session) dispatch(data []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
		log.Printf("ws: dropping malformed frame from %s: %v", s.channelURL, err)
		return
	}

	if head.Type == domain.FrameError {
		var ef domain.ErrorFrame
		if err := json.Unmarshal(data, &ef); err == nil {
			log.Printf("ws: server error on %s: %s", s.channelURL, ef.Message)
		}
	}

	s.mu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	frame := domain.Frame{Type: head.Type, Data: data}
	for _, sub := range subs {
		sub.fn(frame)
	}
}

func (s *Session) credentialURL(token string) string {
	sep := "?"
	if strings.Contains(s.channelURL, "?") {
		sep = "&"
	}
	return s.channelURL + sep + "token=" + url.QueryEscape(token)
}
