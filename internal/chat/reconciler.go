// Package chat holds the client-side chat state: message reconciliation,
// typing presence, the conversation list cache, and the two controllers
// (Client, Inbox) that bind them to a WebSocket session and the REST API.
package chat

import (
	"sort"
	"sync"
	"time"

	"forumchat/internal/domain"
)

// Reconciler merges messages arriving from three sources — initial bulk
// load, optimistic local inserts, and authoritative arrivals (socket
// broadcast or REST response) — into a single deduplicated list ordered
// ascending by creation time.
type Reconciler struct {
	mu   sync.Mutex
	msgs []domain.Message
	seen map[domain.ID]struct{}
}

func NewReconciler() *Reconciler {
	return &Reconciler{seen: make(map[domain.ID]struct{})}
}

// Seed replaces the list with the bulk-loaded history and records every id
// as seen.
func (r *Reconciler) Seed(msgs []domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = make([]domain.Message, len(msgs))
	copy(r.msgs, msgs)
	r.seen = make(map[domain.ID]struct{}, len(msgs))
	for _, m := range msgs {
		r.seen[m.ID] = struct{}{}
	}
	r.sortLocked()
}

// AddLocal inserts an optimistic message with a provisional id. The id is
// deliberately not recorded as seen: the entry is not authoritative until
// the server confirms it.
func (r *Reconciler) AddLocal(senderID domain.ID, senderName, content string) domain.Message {
	now := time.Now()
	m := domain.Message{
		ID:         domain.NewTempID(now),
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		CreatedAt:  now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	r.sortLocked()
	return m
}

// Receive applies an authoritative message. Duplicate deliveries (the
// socket broadcast and a REST response can race) are discarded by id. A
// matching optimistic entry is identified by content and sender — there is
// no shared correlation id in the protocol — and removed before the
// authoritative message is appended.
func (r *Reconciler) Receive(m domain.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[m.ID]; ok {
		return false
	}

	for i := range r.msgs {
		if r.msgs[i].IsTemp() && r.msgs[i].Content == m.Content && r.msgs[i].SenderID == m.SenderID {
			r.msgs = append(r.msgs[:i], r.msgs[i+1:]...)
			break
		}
	}

	r.msgs = append(r.msgs, m)
	r.seen[m.ID] = struct{}{}
	r.sortLocked()
	return true
}

// Fail rolls back the optimistic entry with the given provisional id after
// a failed send.
func (r *Reconciler) Fail(tempID domain.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.msgs {
		if r.msgs[i].ID == tempID {
			r.msgs = append(r.msgs[:i], r.msgs[i+1:]...)
			return true
		}
	}
	return false
}

// Messages returns a copy of the current list, ordered ascending by
// creation time.
func (r *Reconciler) Messages() []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// Len returns the number of messages currently held.
func (r *Reconciler) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *Reconciler) sortLocked() {
	sort.SliceStable(r.msgs, func(i, j int) bool {
		return r.msgs[i].CreatedAt.Before(r.msgs[j].CreatedAt)
	})
}
