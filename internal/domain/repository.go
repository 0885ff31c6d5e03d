package domain

import (
	"context"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	Create(ctx context.Context, c *ConversationRecord) error
	GetByID(ctx context.Context, id int64) (*ConversationRecord, error)
	ListForUser(ctx context.Context, userID int64) ([]*ConversationRecord, error)
	FindByParties(ctx context.Context, forumID, candidateID, recruiterID int64) (*ConversationRecord, error)
	UpdateStatus(ctx context.Context, id int64, status ConversationStatus) error
	Touch(ctx context.Context, id int64) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *MessageRecord) error
	ListForConversation(ctx context.Context, conversationID int64, limit int) ([]*MessageRecord, error)
	Latest(ctx context.Context, conversationID int64) (*MessageRecord, error)
	CountUnread(ctx context.Context, conversationID, viewerID int64) (int, error)
	MarkAllRead(ctx context.Context, conversationID, viewerID int64) error
}
