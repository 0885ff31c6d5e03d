package domain

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// ID is an opaque entity identifier. Servers emit numeric ids while the
// client mints string ids for optimistic messages, so both JSON encodings
// are accepted on the wire.
type ID string

func (id ID) String() string { return string(id) }

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		if len(b) < 2 || b[len(b)-1] != '"' {
			return fmt.Errorf("invalid id %q", b)
		}
		*id = ID(b[1 : len(b)-1])
		return nil
	}
	*id = ID(b)
	return nil
}

// Role distinguishes the two viewer kinds of the portal.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
)

// ConversationStatus is the recruiter-side triage state of a conversation.
// pending is the initial state; accepted and rejected are terminal.
type ConversationStatus string

const (
	StatusPending  ConversationStatus = "pending"
	StatusAccepted ConversationStatus = "accepted"
	StatusRejected ConversationStatus = "rejected"
)

// ValidStatusTransition reports whether a conversation may move from one
// status to another. Only pending -> accepted|rejected is allowed.
func ValidStatusTransition(from, to ConversationStatus) bool {
	return from == StatusPending && (to == StatusAccepted || to == StatusRejected)
}

// Participant identifies one party of a conversation as shown to the other.
type Participant struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// DisplayName returns the participant's name, falling back to email.
func (p Participant) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Email
}

// MessageSummary is the last-message snippet carried on conversation
// summaries.
type MessageSummary struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a conversation summary as serialized for one viewer.
// Exactly one of Candidate or Company is populated: candidates see the
// company counterpart, recruiters see the candidate.
type Conversation struct {
	ID          ID                 `json:"id"`
	ForumID     ID                 `json:"forum_id"`
	Status      ConversationStatus `json:"status"`
	Candidate   *Participant       `json:"candidate,omitempty"`
	Company     *Participant       `json:"company,omitempty"`
	LastMessage *MessageSummary    `json:"last_message,omitempty"`
	UnreadCount int                `json:"unread_count"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Counterpart returns whichever party is populated for this viewer.
func (c *Conversation) Counterpart() *Participant {
	if c.Candidate != nil {
		return c.Candidate
	}
	return c.Company
}

// LastActivity is the timestamp the conversation list sorts on: the last
// message time when present, otherwise the conversation's own update time.
func (c *Conversation) LastActivity() time.Time {
	if c.LastMessage != nil {
		return c.LastMessage.CreatedAt
	}
	return c.UpdatedAt
}

// TempIDPrefix marks client-minted message ids that have not been confirmed
// by the server yet. Temporary ids are never persisted.
const TempIDPrefix = "temp_"

// NewTempID mints a provisional message id from the given time.
func NewTempID(at time.Time) ID {
	return ID(fmt.Sprintf("%s%d", TempIDPrefix, at.UnixNano()))
}

// Message is a single chat message.
type Message struct {
	ID             ID        `json:"id"`
	ConversationID ID        `json:"conversation_id"`
	SenderID       ID        `json:"sender_id"`
	SenderName     string    `json:"sender_name,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	IsRead         bool      `json:"is_read"`
}

// IsTemp reports whether the message carries a provisional client id.
func (m *Message) IsTemp() bool {
	return strings.HasPrefix(string(m.ID), TempIDPrefix)
}
