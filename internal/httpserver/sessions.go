package httpserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionCookieName = "sessionid"

const sessionTTL = 14 * 24 * time.Hour

type sessionEntry struct {
	userID    int64
	expiresAt time.Time
}

// SessionStore keeps the ambient cookie sessions backing all REST calls.
// In-memory: the reference backend is a single process.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]sessionEntry)}
}

// Create mints a new session id for the user.
func (s *SessionStore) Create(userID int64) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sessionEntry{
		userID:    userID,
		expiresAt: time.Now().Add(sessionTTL),
	}
	return id
}

// Resolve returns the user id behind a session id, if the session is live.
func (s *SessionStore) Resolve(id string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return 0, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.sessions, id)
		return 0, false
	}
	return entry.userID, true
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL / time.Second),
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
