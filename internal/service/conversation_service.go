package service

import (
	"context"
	"errors"
	"fmt"

	"forumchat/internal/domain"
	"forumchat/internal/security"
)

// ConversationService owns conversation lifecycle and the per-viewer wire
// projection: candidates see a company counterpart, recruiters a candidate
// counterpart.
type ConversationService struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	users         domain.UserRepository
	encryptor     *security.Encryptor
}

func NewConversationService(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	users domain.UserRepository,
	encryptor *security.Encryptor,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		encryptor:     encryptor,
	}
}

// Create opens a candidate-initiated conversation with a recruiter on a
// forum. An existing conversation between the same parties is returned
// as-is instead of creating a duplicate.
func (s *ConversationService) Create(ctx context.Context, candidate *domain.User, forumID, recruiterID int64) (*domain.ConversationRecord, error) {
	if candidate.Role != domain.RoleCandidate {
		return nil, errors.New("only candidates can start conversations")
	}
	recruiter, err := s.users.GetByID(ctx, recruiterID)
	if err != nil {
		return nil, fmt.Errorf("get recruiter: %w", err)
	}
	if recruiter == nil || recruiter.Role != domain.RoleRecruiter {
		return nil, errors.New("recruiter not found")
	}

	existing, err := s.conversations.FindByParties(ctx, forumID, candidate.ID, recruiterID)
	if err != nil {
		return nil, fmt.Errorf("find existing conversation: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	conv := &domain.ConversationRecord{
		ForumID:     forumID,
		CandidateID: candidate.ID,
		RecruiterID: recruiterID,
		Status:      domain.StatusPending,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get returns a conversation after checking the viewer is a participant.
func (s *ConversationService) Get(ctx context.Context, conversationID, viewerID int64) (*domain.ConversationRecord, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, domain.ErrNotFound
	}
	if !conv.IsParticipant(viewerID) {
		return nil, domain.ErrForbidden
	}
	return conv, nil
}

// UpdateStatus moves a conversation out of pending. Only the recruiter side
// may triage, and accepted/rejected are terminal.
func (s *ConversationService) UpdateStatus(ctx context.Context, viewer *domain.User, conversationID int64, status domain.ConversationStatus) (*domain.ConversationRecord, error) {
	conv, err := s.Get(ctx, conversationID, viewer.ID)
	if err != nil {
		return nil, err
	}
	if viewer.Role != domain.RoleRecruiter {
		return nil, domain.ErrForbidden
	}
	if !domain.ValidStatusTransition(conv.Status, status) {
		return nil, domain.ErrInvalidStatus
	}
	if err := s.conversations.UpdateStatus(ctx, conversationID, status); err != nil {
		return nil, err
	}
	return s.conversations.GetByID(ctx, conversationID)
}

// ListForViewer returns all of the viewer's conversations as wire
// summaries, most recent activity first.
func (s *ConversationService) ListForViewer(ctx context.Context, viewer *domain.User) ([]domain.Conversation, error) {
	recs, err := s.conversations.ListForUser(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Conversation, 0, len(recs))
	for _, rec := range recs {
		summary, err := s.Summary(ctx, rec, viewer)
		if err != nil {
			return nil, err
		}
		out = append(out, *summary)
	}
	return out, nil
}

// Summary projects a stored conversation into the wire form for one viewer:
// counterpart identity, decrypted last-message snippet, and unread count.
func (s *ConversationService) Summary(ctx context.Context, rec *domain.ConversationRecord, viewer *domain.User) (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ID:        domain.IDFromInt64(rec.ID),
		ForumID:   domain.IDFromInt64(rec.ForumID),
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}

	otherID := rec.CandidateID
	if viewer.ID == rec.CandidateID {
		otherID = rec.RecruiterID
	}
	other, err := s.users.GetByID(ctx, otherID)
	if err != nil {
		return nil, fmt.Errorf("get counterpart: %w", err)
	}
	if other == nil {
		return nil, domain.ErrNotFound
	}

	if viewer.ID == rec.CandidateID {
		// Candidates see the company behind the recruiter.
		name := other.CompanyName
		if name == "" {
			name = other.Name
		}
		conv.Company = &domain.Participant{
			ID:    domain.IDFromInt64(other.ID),
			Name:  name,
			Email: other.Email,
		}
	} else {
		conv.Candidate = &domain.Participant{
			ID:    domain.IDFromInt64(other.ID),
			Name:  other.Name,
			Email: other.Email,
		}
	}

	latest, err := s.messages.Latest(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		content, err := s.encryptor.Decrypt(latest.Content)
		if err != nil {
			return nil, fmt.Errorf("decrypt last message: %w", err)
		}
		conv.LastMessage = &domain.MessageSummary{
			Content:   content,
			CreatedAt: latest.CreatedAt,
		}
	}

	unread, err := s.messages.CountUnread(ctx, rec.ID, viewer.ID)
	if err != nil {
		return nil, err
	}
	conv.UnreadCount = unread

	return conv, nil
}

// SummaryForUserID is Summary with the viewer looked up by id; used when
// broadcasting list updates to each participant.
func (s *ConversationService) SummaryForUserID(ctx context.Context, rec *domain.ConversationRecord, userID int64) (*domain.Conversation, error) {
	viewer, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get viewer: %w", err)
	}
	if viewer == nil {
		return nil, domain.ErrNotFound
	}
	return s.Summary(ctx, rec, viewer)
}
