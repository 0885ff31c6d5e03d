package chat

import (
	"context"
	"fmt"
	"log"

	"forumchat/internal/domain"
	"forumchat/internal/restclient"
	"forumchat/internal/ws"
)

// Inbox drives the viewer's conversation list: it seeds the cache over REST
// once, then keeps it consistent via the list channel's push updates.
// Recruiters can filter the view by status and accept or reject pending
// conversations with an optimistic local update.
type Inbox struct {
	rest  *restclient.Client
	sess  *ws.Session
	cache *ListCache

	unsub    func()
	onChange func()
}

func NewInbox(rest *restclient.Client) *Inbox {
	return &Inbox{
		rest:  rest,
		sess:  ws.NewSession(rest.ListChannelURL(), rest),
		cache: NewListCache(),
	}
}

// OnChange registers a callback invoked whenever the cached list changes.
// Set it before Open; the callback runs on the session's read goroutine.
func (b *Inbox) OnChange(fn func()) {
	b.onChange = fn
}

// Open bulk-fetches the conversation list and connects the list channel.
// Like the conversation socket, a failed connect leaves the inbox usable
// from the initial snapshot.
func (b *Inbox) Open(ctx context.Context) error {
	convs, err := b.rest.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}
	b.cache.Seed(convs)

	b.unsub = b.sess.Subscribe(b.handleFrame)
	if err := b.sess.Connect(ctx); err != nil {
		log.Printf("chat: list socket connect: %v", err)
	}
	return nil
}

// Conversations returns the current (possibly filtered) view, most recent
// activity first.
func (b *Inbox) Conversations() []domain.Conversation {
	return b.cache.Conversations()
}

// Get looks up one cached conversation, ignoring the filter.
func (b *Inbox) Get(id domain.ID) (domain.Conversation, bool) {
	return b.cache.Get(id)
}

// SetFilter restricts the view to one status (recruiter-side triage).
func (b *Inbox) SetFilter(status domain.ConversationStatus) {
	b.cache.SetFilter(status)
	b.notify()
}

// ClearFilter shows the full list again.
func (b *Inbox) ClearFilter() {
	b.cache.ClearFilter()
	b.notify()
}

// Accept optimistically marks the conversation accepted and confirms over
// REST. The subsequent push update is the source of truth.
func (b *Inbox) Accept(ctx context.Context, id domain.ID) error {
	return b.updateStatus(ctx, id, domain.StatusAccepted)
}

// Reject optimistically marks the conversation rejected and confirms over
// REST.
func (b *Inbox) Reject(ctx context.Context, id domain.ID) error {
	return b.updateStatus(ctx, id, domain.StatusRejected)
}

func (b *Inbox) updateStatus(ctx context.Context, id domain.ID, status domain.ConversationStatus) error {
	b.cache.SetStatus(id, status)
	b.notify()

	if _, err := b.rest.UpdateConversationStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// Start opens a candidate-initiated conversation with a recruiter and
// inserts it into the cache immediately.
func (b *Inbox) Start(ctx context.Context, forumID, recruiterID domain.ID) (*domain.Conversation, error) {
	conv, err := b.rest.CreateConversation(ctx, forumID, recruiterID)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	b.cache.ApplyUpdate(conv.ID, conv)
	b.notify()
	return conv, nil
}

// Offline reports whether the list channel currently has no live socket.
func (b *Inbox) Offline() bool {
	return !b.sess.Connected()
}

// Close releases the subscription and tears down the socket.
func (b *Inbox) Close() {
	if b.unsub != nil {
		b.unsub()
		b.unsub = nil
	}
	b.sess.Disconnect()
}

func (b *Inbox) handleFrame(f domain.Frame) {
	if f.Type != domain.FrameListUpdated {
		return
	}
	var lf domain.ListUpdatedFrame
	if err := f.Decode(&lf); err != nil {
		log.Printf("chat: decode conversation_list_updated: %v", err)
		return
	}
	b.cache.ApplyUpdate(lf.ConversationID, lf.Conversation)
	b.notify()
}

func (b *Inbox) notify() {
	if b.onChange != nil {
		b.onChange()
	}
}
