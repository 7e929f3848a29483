package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovarra/leadgen-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_SuggestionExists(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(1\) FROM suggestions`).
		WithArgs("https://example/post").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := s.SuggestionExists(context.Background(), "https://example/post")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertSuggestion(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO suggestions`).
		WithArgs(pgxmock.AnyArg(), "title", "https://example/post", "CreatorAdvice",
			"reply text", "new", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.InsertSuggestion(context.Background(), model.Suggestion{
		PostTitle: "title",
		PostURL:   "https://example/post",
		Subreddit: "CreatorAdvice",
		Reply:     "reply text",
		Status:    model.SuggestionStatusNew,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertSuggestion_Duplicate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO suggestions`).
		WithArgs(pgxmock.AnyArg(), "title", "https://example/post", "CreatorAdvice",
			"reply text", "new", pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "suggestions_post_url_key"})

	err := s.InsertSuggestion(context.Background(), model.Suggestion{
		PostTitle: "title",
		PostURL:   "https://example/post",
		Subreddit: "CreatorAdvice",
		Reply:     "reply text",
		Status:    model.SuggestionStatusNew,
	})
	assert.ErrorIs(t, err, ErrDuplicateSuggestion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRedditor_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM redditors WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.GetRedditor(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRedditor(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM redditors WHERE username = \$1`).
		WithArgs("creator_one").
		WillReturnRows(pgxmock.NewRows([]string{
			"username", "account_age_days", "total_karma", "comment_karma", "post_karma",
			"authenticity_score", "need_score", "priority", "is_authentic", "is_active",
			"source_posts", "contact_status", "social_links", "first_seen", "last_updated",
		}).AddRow(
			"creator_one", 420, 8000, 5000, 3000,
			82, 71, "high", true, true,
			[]byte(`["https://example/post1"]`), "pending", []byte(nil), now, now,
		))

	p, err := s.GetRedditor(context.Background(), "creator_one")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, model.PriorityHigh, p.Priority)
	assert.Equal(t, []string{"https://example/post1"}, p.SourcePosts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertRedditor(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO redditors`).
		WithArgs("creator_one", 420, 8000, 5000, 3000, 82, 71, "high", true, true,
			pgxmock.AnyArg(), "pending", pgxmock.AnyArg(), now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertRedditor(context.Background(), &model.RedditorProfile{
		Username: "creator_one", AccountAgeDays: 420, TotalKarma: 8000,
		CommentKarma: 5000, PostKarma: 3000, AuthenticityScore: 82, NeedScore: 71,
		Priority: model.PriorityHigh, IsAuthentic: true, IsActive: true,
		SourcePosts: []string{"https://example/post1"}, ContactStatus: model.ContactStatusPending,
		FirstSeen: now, LastUpdated: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateContactStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE redditors SET contact_status`).
		WithArgs("rejected", pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateContactStatus(context.Background(), "ghost", model.ContactStatusRejected)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestCheckpoint_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT run_key, stage, posts, summary, saved_at FROM checkpoints`).
		WithArgs("unknown-key").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.LatestCheckpoint(context.Background(), "unknown-key")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveCheckpoint_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO checkpoints`).
		WithArgs("key1", "classified", 1, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveCheckpoint(context.Background(), model.CheckpointRecord{
		RunKey:  "key1",
		Stage:   model.StageClassified,
		Posts:   []model.Post{{URL: "https://example/p1"}},
		Summary: model.RunSummary{Processed: 1},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RecordSubredditStat(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO subreddit_stats`).
		WithArgs("CreatorAdvice", 10, 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.RecordSubredditStat(context.Background(), "CreatorAdvice", 10, 2)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET summary`).
		WithArgs(pgxmock.AnyArg(), "success", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	summary := &model.RunSummary{Processed: 2}
	summary.Finalize()
	err := s.CompleteRun(context.Background(), "run-1", summary)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
