package domain

import (
	"strconv"
	"time"
)

// IDFromInt64 converts a storage id to its wire form.
func IDFromInt64(v int64) ID {
	return ID(strconv.FormatInt(v, 10))
}

// Int64 parses the id as a storage id; zero when the id is not numeric
// (e.g. a provisional client id).
func (id ID) Int64() int64 {
	v, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Storage-level records used by the reference backend. The wire entities in
// models.go are viewer-specific projections of these.

// User represents a portal account: a candidate, or a recruiter acting for
// a company.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	Name           string    `db:"name" json:"name"`
	Role           Role      `db:"role" json:"role"`
	CompanyName    string    `db:"company_name" json:"company_name,omitempty"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ConversationRecord is a stored conversation between one candidate and one
// recruiter within a forum.
type ConversationRecord struct {
	ID          int64              `db:"id"`
	ForumID     int64              `db:"forum_id"`
	CandidateID int64              `db:"candidate_id"`
	RecruiterID int64              `db:"recruiter_id"`
	Status      ConversationStatus `db:"status"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at"`
}

// ParticipantIDs returns both party ids of the conversation.
func (c *ConversationRecord) ParticipantIDs() []int64 {
	return []int64{c.CandidateID, c.RecruiterID}
}

// IsParticipant reports whether the user belongs to the conversation.
func (c *ConversationRecord) IsParticipant(userID int64) bool {
	return userID == c.CandidateID || userID == c.RecruiterID
}

// MessageRecord is a stored chat message. Content is encrypted at rest.
type MessageRecord struct {
	ID             int64     `db:"id"`
	ConversationID int64     `db:"conversation_id"`
	SenderID       int64     `db:"sender_id"`
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
	IsRead         bool      `db:"is_read"`
}
