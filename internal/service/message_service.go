package service

import (
	"context"
	"errors"
	"fmt"

	"forumchat/internal/domain"
	"forumchat/internal/security"
)

const maxMessageLength = 5000

// MessageService creates and lists chat messages. Content is encrypted at
// rest and decrypted on the way out.
type MessageService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	users         domain.UserRepository
	encryptor     *security.Encryptor
}

func NewMessageService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	users domain.UserRepository,
	encryptor *security.Encryptor,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		encryptor:     encryptor,
	}
}

// Create stores a message from sender in the conversation and returns both
// the record and its wire form. The parent conversation's activity
// timestamp is bumped so list ordering stays correct.
func (s *MessageService) Create(ctx context.Context, sender *domain.User, conversationID int64, content string) (*domain.MessageRecord, *domain.Message, error) {
	if content == "" {
		return nil, nil, errors.New("message content must not be empty")
	}
	if len([]rune(content)) > maxMessageLength {
		return nil, nil, fmt.Errorf("message content exceeds %d characters", maxMessageLength)
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, nil, domain.ErrNotFound
	}
	if !conv.IsParticipant(sender.ID) {
		return nil, nil, domain.ErrForbidden
	}

	sealed, err := s.encryptor.Encrypt(content)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt content: %w", err)
	}

	rec := &domain.MessageRecord{
		ConversationID: conversationID,
		SenderID:       sender.ID,
		Content:        sealed,
	}
	if err := s.messages.Create(ctx, rec); err != nil {
		return nil, nil, err
	}
	if err := s.conversations.Touch(ctx, conversationID); err != nil {
		return nil, nil, err
	}

	return rec, s.toWire(rec, content, sender.Name), nil
}

// List returns the conversation history for a participant, ascending by
// creation time, with content decrypted.
func (s *MessageService) List(ctx context.Context, viewer *domain.User, conversationID int64, limit int) ([]domain.Message, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrNotFound
	}
	if !conv.IsParticipant(viewer.ID) {
		return nil, domain.ErrForbidden
	}

	recs, err := s.messages.ListForConversation(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}

	// Sender names for the two participants, fetched once.
	names := make(map[int64]string, 2)
	for _, id := range conv.ParticipantIDs() {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get sender: %w", err)
		}
		if u != nil {
			names[id] = u.Name
		}
	}

	out := make([]domain.Message, 0, len(recs))
	for _, rec := range recs {
		content, err := s.encryptor.Decrypt(rec.Content)
		if err != nil {
			return nil, fmt.Errorf("decrypt message %d: %w", rec.ID, err)
		}
		out = append(out, *s.toWire(rec, content, names[rec.SenderID]))
	}
	return out, nil
}

// MarkAllRead flags every counterpart message in the conversation as read.
func (s *MessageService) MarkAllRead(ctx context.Context, viewer *domain.User, conversationID int64) error {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil {
		return domain.ErrNotFound
	}
	if !conv.IsParticipant(viewer.ID) {
		return domain.ErrForbidden
	}
	return s.messages.MarkAllRead(ctx, conversationID, viewer.ID)
}

func (s *MessageService) toWire(rec *domain.MessageRecord, content, senderName string) *domain.Message {
	return &domain.Message{
		ID:             domain.IDFromInt64(rec.ID),
		ConversationID: domain.IDFromInt64(rec.ConversationID),
		SenderID:       domain.IDFromInt64(rec.SenderID),
		SenderName:     senderName,
		Content:        content,
		CreatedAt:      rec.CreatedAt,
		IsRead:         rec.IsRead,
	}
}
