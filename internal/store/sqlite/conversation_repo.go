package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"forumchat/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

const conversationColumns = `id, forum_id, candidate_id, recruiter_id, status, created_at, updated_at`

func (r *ConversationRepo) Create(ctx context.Context, c *domain.ConversationRecord) error {
	now := time.Now().UTC()
	if c.Status == "" {
		c.Status = domain.StatusPending
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (forum_id, candidate_id, recruiter_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ForumID, c.CandidateID, c.RecruiterID, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id int64) (*domain.ConversationRecord, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID int64) ([]*domain.ConversationRecord, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE candidate_id = ? OR recruiter_id = ?
		ORDER BY updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var res []*domain.ConversationRecord
	for rows.Next() {
		c := &domain.ConversationRecord{}
		if err := rows.Scan(
			&c.ID,
			&c.ForumID,
			&c.CandidateID,
			&c.RecruiterID,
			&c.Status,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *ConversationRepo) FindByParties(ctx context.Context, forumID, candidateID, recruiterID int64) (*domain.ConversationRecord, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE forum_id = ? AND candidate_id = ? AND recruiter_id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, forumID, candidateID, recruiterID))
}

func (r *ConversationRepo) UpdateStatus(ctx context.Context, id int64, status domain.ConversationStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

func (r *ConversationRepo) Touch(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ? WHERE id = ?
	`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepo) scanOne(row *sql.Row) (*domain.ConversationRecord, error) {
	c := &domain.ConversationRecord{}
	err := row.Scan(
		&c.ID,
		&c.ForumID,
		&c.CandidateID,
		&c.RecruiterID,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}
