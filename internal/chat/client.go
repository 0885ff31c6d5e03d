package chat

import (
	"context"
	"fmt"
	"log"

	"forumchat/internal/domain"
	"forumchat/internal/restclient"
	"forumchat/internal/ws"
)

// Client drives one open conversation: it owns the conversation's WebSocket
// session, reconciles optimistic and authoritative messages, tracks the
// counterpart's typing state, and signals the local user's typing over the
// socket. A Client is owned by exactly one view at a time; Close must be
// called on teardown so no timers or subscriptions leak.
type Client struct {
	conversationID domain.ID
	viewer         domain.Participant

	rest     *restclient.Client
	sess     *ws.Session
	rec      *Reconciler
	typing   *Tracker
	notifier *Notifier

	unsub    func()
	onChange func()
}

// NewClient creates the controller for a single conversation. viewer is the
// local user's identity, used for optimistic inserts.
func NewClient(rest *restclient.Client, viewer domain.Participant, conversationID domain.ID) *Client {
	c := &Client{
		conversationID: conversationID,
		viewer:         viewer,
		rest:           rest,
		sess:           ws.NewSession(rest.ChatChannelURL(conversationID), rest),
		rec:            NewReconciler(),
		typing:         NewTracker(),
	}
	c.notifier = NewNotifier(func(isTyping bool) error {
		return c.sess.Send(domain.NewOutboundTyping(isTyping))
	})
	return c
}

// OnChange registers a callback invoked whenever the message list or typing
// set changes. Set it before Open; the callback runs on the session's read
// goroutine.
func (c *Client) OnChange(fn func()) {
	c.onChange = fn
}

// Open bulk-loads the history over REST and connects the message channel.
// A failed socket connect is not fatal: the conversation stays readable and
// sendable through REST, with the offline state visible via Offline.
func (c *Client) Open(ctx context.Context) error {
	msgs, err := c.rest.ListMessages(ctx, c.conversationID)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	c.rec.Seed(msgs)

	c.unsub = c.sess.Subscribe(c.handleFrame)
	if err := c.sess.Connect(ctx); err != nil {
		log.Printf("chat: conversation %s socket connect: %v", c.conversationID, err)
	}
	return nil
}

// Send inserts the message optimistically, then delivers it over the socket
// or, when the socket is down, over REST. On REST failure the optimistic
// entry is rolled back and the error returned for user-visible feedback.
func (c *Client) Send(ctx context.Context, content string) (domain.Message, error) {
	if content == "" {
		return domain.Message{}, domain.ErrInvalidInput
	}

	temp := c.rec.AddLocal(c.viewer.ID, c.viewer.DisplayName(), content)
	c.notify()

	if err := c.sess.Send(domain.NewOutboundMessage(content)); err == nil {
		// The server echo on the conversation channel will replace the
		// optimistic entry.
		return temp, nil
	}

	msg, err := c.rest.CreateMessage(ctx, c.conversationID, content)
	if err != nil {
		c.rec.Fail(temp.ID)
		c.notify()
		return domain.Message{}, fmt.Errorf("send message: %w", err)
	}
	c.rec.Receive(*msg)
	c.notify()
	return *msg, nil
}

// Typing records a local keystroke for the debounced typing indicator.
func (c *Client) Typing() {
	c.notifier.Keystroke()
}

// MarkRead marks all counterpart messages in the conversation as read.
func (c *Client) MarkRead(ctx context.Context) error {
	return c.rest.MarkConversationRead(ctx, c.conversationID)
}

// Messages returns the reconciled message list, ascending by creation time.
func (c *Client) Messages() []domain.Message {
	return c.rec.Messages()
}

// TypingNames returns the counterpart display names currently typing.
func (c *Client) TypingNames() []string {
	return c.typing.Names()
}

// Offline reports whether the message channel currently has no live socket.
func (c *Client) Offline() bool {
	return !c.sess.Connected()
}

// Close releases the subscription, stops the typing debounce, and tears
// down the socket.
func (c *Client) Close() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	c.notifier.Stop()
	c.sess.Disconnect()
}

func (c *Client) handleFrame(f domain.Frame) {
	switch f.Type {
	case domain.FrameChatMessage:
		var cf domain.ChatMessageFrame
		if err := f.Decode(&cf); err != nil {
			log.Printf("chat: decode chat_message: %v", err)
			return
		}
		if c.rec.Receive(cf.Message) {
			c.notify()
		}
	case domain.FrameTyping:
		var tf domain.TypingFrame
		if err := f.Decode(&tf); err != nil {
			log.Printf("chat: decode typing: %v", err)
			return
		}
		c.typing.Set(tf.DisplayName(), tf.IsTyping)
		c.notify()
	}
}

func (c *Client) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}
