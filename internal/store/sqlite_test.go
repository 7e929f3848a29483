package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovarra/leadgen-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Suggestions ---

func TestSQLite_Suggestion_InsertAndExists(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sg := model.Suggestion{
		PostTitle: "My content was leaked",
		PostURL:   "https://www.reddit.com/r/CreatorAdvice/comments/abc/my_content",
		Subreddit: "CreatorAdvice",
		Reply:     "Sorry this happened to you...",
		Status:    model.SuggestionStatusNew,
	}
	require.NoError(t, st.InsertSuggestion(ctx, sg))

	exists, err := st.SuggestionExists(ctx, sg.PostURL)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = st.SuggestionExists(ctx, "https://www.reddit.com/r/other/comments/xyz/unseen")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSQLite_Suggestion_URLUnique(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sg := model.Suggestion{
		PostTitle: "dup",
		PostURL:   "https://www.reddit.com/r/a/comments/1/dup",
		Subreddit: "a",
		Reply:     "r",
		Status:    model.SuggestionStatusNew,
	}
	require.NoError(t, st.InsertSuggestion(ctx, sg))
	err := st.InsertSuggestion(ctx, sg)
	assert.ErrorIs(t, err, ErrDuplicateSuggestion)
}

func TestSQLite_Suggestion_ListRecent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	old := model.Suggestion{
		PostTitle: "old", PostURL: "https://example/old", Subreddit: "a", Reply: "r",
		Status: model.SuggestionStatusNew, CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	fresh := model.Suggestion{
		PostTitle: "fresh", PostURL: "https://example/fresh", Subreddit: "a", Reply: "r",
		Status: model.SuggestionStatusNew, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.InsertSuggestion(ctx, old))
	require.NoError(t, st.InsertSuggestion(ctx, fresh))

	got, err := st.ListRecentSuggestions(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].PostTitle)
}

func TestSQLite_Suggestion_UpdateStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	sg := model.Suggestion{
		ID: "sg-1", PostTitle: "t", PostURL: "https://example/1", Subreddit: "a",
		Reply: "r", Status: model.SuggestionStatusNew,
	}
	require.NoError(t, st.InsertSuggestion(ctx, sg))
	require.NoError(t, st.UpdateSuggestionStatus(ctx, "sg-1", model.SuggestionStatusApproved))

	got, err := st.ListRecentSuggestions(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.SuggestionStatusApproved, got[0].Status)

	assert.Error(t, st.UpdateSuggestionStatus(ctx, "missing", model.SuggestionStatusSent))
}

// --- Redditors ---

func testProfile(username string) *model.RedditorProfile {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.RedditorProfile{
		Username:          username,
		AccountAgeDays:    420,
		TotalKarma:        8000,
		CommentKarma:      5000,
		PostKarma:         3000,
		AuthenticityScore: 82,
		NeedScore:         71,
		Priority:          model.PriorityHigh,
		IsAuthentic:       true,
		IsActive:          true,
		SourcePosts:       []string{"https://example/post1"},
		ContactStatus:     model.ContactStatusPending,
		SocialLinks:       map[string]string{"instagram": "https://instagram.com/u"},
		FirstSeen:         now,
		LastUpdated:       now,
	}
}

func TestSQLite_Redditor_UpsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := testProfile("creator_one")
	require.NoError(t, st.UpsertRedditor(ctx, p))

	got, err := st.GetRedditor(ctx, "creator_one")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.NeedScore, got.NeedScore)
	assert.Equal(t, p.SourcePosts, got.SourcePosts)
	assert.Equal(t, p.SocialLinks, got.SocialLinks)

	missing, err := st.GetRedditor(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_Redditor_UpsertMergesWithoutSecondRow(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := testProfile("creator_two")
	require.NoError(t, st.UpsertRedditor(ctx, p))

	p.AddSourcePost("https://example/post2")
	p.NeedScore = 80
	require.NoError(t, st.UpsertRedditor(ctx, p))

	got, err := st.GetRedditor(ctx, "creator_two")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 80, got.NeedScore)
	assert.Equal(t, []string{"https://example/post1", "https://example/post2"}, got.SourcePosts)

	all, err := st.ListRedditors(ctx, RedditorFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_Redditor_ListFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	high := testProfile("high_need")
	low := testProfile("low_need")
	low.Priority = model.PriorityLow
	low.NeedScore = 10
	low.IsAuthentic = false
	require.NoError(t, st.UpsertRedditor(ctx, high))
	require.NoError(t, st.UpsertRedditor(ctx, low))

	got, err := st.ListRedditors(ctx, RedditorFilter{Priority: model.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "high_need", got[0].Username)

	got, err = st.ListRedditors(ctx, RedditorFilter{AuthenticOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "high_need", got[0].Username)

	// Ordered by need score descending.
	got, err = st.ListRedditors(ctx, RedditorFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "high_need", got[0].Username)
}

func TestSQLite_Redditor_UpdateContactStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertRedditor(ctx, testProfile("contactee")))
	require.NoError(t, st.UpdateContactStatus(ctx, "contactee", model.ContactStatusContacted))

	got, err := st.GetRedditor(ctx, "contactee")
	require.NoError(t, err)
	assert.Equal(t, model.ContactStatusContacted, got.ContactStatus)

	assert.Error(t, st.UpdateContactStatus(ctx, "ghost", model.ContactStatusApproved))
}

func TestSQLite_Redditor_ListStale(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	stale := testProfile("stale_user")
	stale.LastUpdated = time.Now().UTC().Add(-30 * 24 * time.Hour)
	fresh := testProfile("fresh_user")
	require.NoError(t, st.UpsertRedditor(ctx, stale))
	require.NoError(t, st.UpsertRedditor(ctx, fresh))

	got, err := st.ListStaleRedditors(ctx, time.Now().UTC().Add(-7*24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "stale_user", got[0].Username)
}

// --- Checkpoints ---

func TestSQLite_Checkpoint_SaveAndLatest(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	posts := []model.Post{{URL: "https://example/p1", Title: "t1", Subreddit: "a"}}
	require.NoError(t, st.SaveCheckpoint(ctx, model.CheckpointRecord{
		RunKey: "key1", Stage: model.StageScraped, Posts: posts,
	}))
	require.NoError(t, st.SaveCheckpoint(ctx, model.CheckpointRecord{
		RunKey: "key1", Stage: model.StageClassified, Posts: posts,
		Summary: model.RunSummary{Processed: 3, Skipped: 2},
	}))

	rec, err := st.LatestCheckpoint(ctx, "key1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	// The most advanced stage wins.
	assert.Equal(t, model.StageClassified, rec.Stage)
	require.Len(t, rec.Posts, 1)
	assert.Equal(t, "https://example/p1", rec.Posts[0].URL)
	assert.Equal(t, 3, rec.Summary.Processed)
	assert.Equal(t, 2, rec.Summary.Skipped)
}

func TestSQLite_Checkpoint_MissingAndClear(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rec, err := st.LatestCheckpoint(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, st.SaveCheckpoint(ctx, model.CheckpointRecord{
		RunKey: "key2", Stage: model.StageScraped,
	}))
	require.NoError(t, st.ClearCheckpoints(ctx, "key2"))

	rec, err = st.LatestCheckpoint(ctx, "key2")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSQLite_Checkpoint_OverwriteSameStage(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveCheckpoint(ctx, model.CheckpointRecord{
		RunKey: "key3", Stage: model.StageScraped,
		Posts: []model.Post{{URL: "https://example/old"}},
	}))
	require.NoError(t, st.SaveCheckpoint(ctx, model.CheckpointRecord{
		RunKey: "key3", Stage: model.StageScraped,
		Posts: []model.Post{{URL: "https://example/new"}},
	}))

	rec, err := st.LatestCheckpoint(ctx, "key3")
	require.NoError(t, err)
	require.Len(t, rec.Posts, 1)
	assert.Equal(t, "https://example/new", rec.Posts[0].URL)
}

// --- Subreddit stats ---

func TestSQLite_SubredditStats_Additive(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordSubredditStat(ctx, "CreatorAdvice", 10, 2))
	require.NoError(t, st.RecordSubredditStat(ctx, "CreatorAdvice", 20, 4))
	require.NoError(t, st.RecordSubredditStat(ctx, "LegalAdvice", 5, 0))

	stats, err := st.ListSubredditStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "CreatorAdvice", stats[0].Name)
	assert.Equal(t, 30, stats[0].TotalPosts)
	assert.Equal(t, 6, stats[0].TotalRelevant)
	assert.Equal(t, 2, stats[0].Runs)
	assert.InDelta(t, 0.2, stats[0].ConversionRate, 1e-9)
}

// --- Runs ---

func TestSQLite_Run_CreateAndComplete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	params := model.ScrapeParams{
		Subreddits: []string{"CreatorAdvice"},
		Keywords:   []string{"dmca help"},
		PostLimit:  10,
		MaxAgeDays: 30,
	}
	run, err := st.CreateRun(ctx, params)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	summary := &model.RunSummary{Processed: 2}
	summary.Finalize()
	require.NoError(t, st.CompleteRun(ctx, run.ID, summary))

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, string(model.RunStatusSuccess), runs[0].Status)
	require.NotNil(t, runs[0].Summary)
	assert.Equal(t, 2, runs[0].Summary.Processed)
	assert.Equal(t, params.Subreddits, runs[0].Params.Subreddits)
}
