package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumchat/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func seedUser(t *testing.T, repo *UserRepo, email string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:          email,
		Name:           "Test " + email,
		Role:           role,
		HashedPassword: "x",
		IsActive:       true,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepo(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	u := seedUser(t, repo, "alice@example.com", domain.RoleCandidate)
	require.NotZero(t, u.ID)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "alice@example.com", byID.Email)
	assert.Equal(t, domain.RoleCandidate, byID.Role)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	missing, err := repo.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Email uniqueness is enforced by the schema.
	dup := &domain.User{Email: "alice@example.com", Name: "Dup", Role: domain.RoleCandidate, HashedPassword: "x"}
	assert.Error(t, repo.Create(ctx, dup))
}

func TestConversationRepo(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepo(db)
	repo := NewConversationRepo(db)
	ctx := context.Background()

	candidate := seedUser(t, users, "cand@example.com", domain.RoleCandidate)
	recruiter := seedUser(t, users, "rec@example.com", domain.RoleRecruiter)
	other := seedUser(t, users, "other@example.com", domain.RoleRecruiter)

	conv := &domain.ConversationRecord{ForumID: 3, CandidateID: candidate.ID, RecruiterID: recruiter.ID}
	require.NoError(t, repo.Create(ctx, conv))
	require.NotZero(t, conv.ID)
	assert.Equal(t, domain.StatusPending, conv.Status)

	second := &domain.ConversationRecord{ForumID: 3, CandidateID: candidate.ID, RecruiterID: other.ID}
	require.NoError(t, repo.Create(ctx, second))

	t.Run("unique parties", func(t *testing.T) {
		dup := &domain.ConversationRecord{ForumID: 3, CandidateID: candidate.ID, RecruiterID: recruiter.ID}
		assert.Error(t, repo.Create(ctx, dup))
	})

	t.Run("find by parties", func(t *testing.T) {
		found, err := repo.FindByParties(ctx, 3, candidate.ID, recruiter.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, conv.ID, found.ID)

		none, err := repo.FindByParties(ctx, 99, candidate.ID, recruiter.ID)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("list for user ordered by activity", func(t *testing.T) {
		require.NoError(t, repo.Touch(ctx, conv.ID))

		list, err := repo.ListForUser(ctx, candidate.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, conv.ID, list[0].ID, "touched conversation moves to the top")

		recruiterList, err := repo.ListForUser(ctx, recruiter.ID)
		require.NoError(t, err)
		require.Len(t, recruiterList, 1)
		assert.Equal(t, conv.ID, recruiterList[0].ID)
	})

	t.Run("status update", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, conv.ID, domain.StatusAccepted))
		got, err := repo.GetByID(ctx, conv.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, domain.StatusAccepted, got.Status)
	})
}

func TestMessageRepo(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepo(db)
	convs := NewConversationRepo(db)
	repo := NewMessageRepo(db)
	ctx := context.Background()

	candidate := seedUser(t, users, "cand@example.com", domain.RoleCandidate)
	recruiter := seedUser(t, users, "rec@example.com", domain.RoleRecruiter)
	conv := &domain.ConversationRecord{ForumID: 1, CandidateID: candidate.ID, RecruiterID: recruiter.ID}
	require.NoError(t, convs.Create(ctx, conv))

	base := time.Now().UTC().Truncate(time.Second)
	send := func(sender int64, content string, at time.Time) *domain.MessageRecord {
		m := &domain.MessageRecord{
			ConversationID: conv.ID,
			SenderID:       sender,
			Content:        content,
			CreatedAt:      at,
		}
		require.NoError(t, repo.Create(ctx, m))
		return m
	}

	send(candidate.ID, "hello", base)
	send(recruiter.ID, "hi there", base.Add(time.Second))
	last := send(recruiter.ID, "still around?", base.Add(2*time.Second))

	t.Run("list ascending", func(t *testing.T) {
		msgs, err := repo.ListForConversation(ctx, conv.ID, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "hello", msgs[0].Content)
		assert.Equal(t, "still around?", msgs[2].Content)

		limited, err := repo.ListForConversation(ctx, conv.ID, 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})

	t.Run("latest", func(t *testing.T) {
		got, err := repo.Latest(ctx, conv.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, last.ID, got.ID)

		none, err := repo.Latest(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("unread counts are per viewer", func(t *testing.T) {
		// The candidate has two unread messages from the recruiter; the
		// recruiter has one from the candidate.
		n, err := repo.CountUnread(ctx, conv.ID, candidate.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = repo.CountUnread(ctx, conv.ID, recruiter.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("mark all read", func(t *testing.T) {
		require.NoError(t, repo.MarkAllRead(ctx, conv.ID, candidate.ID))

		n, err := repo.CountUnread(ctx, conv.ID, candidate.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		// Only the viewer's counterpart messages are touched.
		n, err = repo.CountUnread(ctx, conv.ID, recruiter.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
