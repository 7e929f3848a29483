package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ovarra/leadgen-cli/internal/model"
	"github.com/ovarra/leadgen-cli/internal/store"
	"github.com/ovarra/leadgen-cli/pkg/anthropic"
	"github.com/ovarra/leadgen-cli/pkg/reddit"
)

// --- Reddit Mock ---

type mockRedditClient struct {
	mock.Mock
}

func (m *mockRedditClient) Search(ctx context.Context, subreddit, keyword string, limit int, maxAge time.Duration) ([]model.Post, error) {
	args := m.Called(ctx, subreddit, keyword, limit, maxAge)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *mockRedditClient) Comments(ctx context.Context, postURL string) ([]model.Comment, error) {
	args := m.Called(ctx, postURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Comment), args.Error(1)
}

func (m *mockRedditClient) Profile(ctx context.Context, username string) (*reddit.Profile, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reddit.Profile), args.Error(1)
}

func (m *mockRedditClient) UserComments(ctx context.Context, username string, limit int) ([]model.Comment, error) {
	args := m.Called(ctx, username, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Comment), args.Error(1)
}

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertSuggestion(ctx context.Context, s model.Suggestion) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockStore) SuggestionExists(ctx context.Context, postURL string) (bool, error) {
	args := m.Called(ctx, postURL)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ListRecentSuggestions(ctx context.Context, since time.Time) ([]model.Suggestion, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Suggestion), args.Error(1)
}

func (m *mockStore) UpdateSuggestionStatus(ctx context.Context, id string, status model.SuggestionStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockStore) GetRedditor(ctx context.Context, username string) (*model.RedditorProfile, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RedditorProfile), args.Error(1)
}

func (m *mockStore) UpsertRedditor(ctx context.Context, p *model.RedditorProfile) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockStore) ListRedditors(ctx context.Context, filter store.RedditorFilter) ([]model.RedditorProfile, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RedditorProfile), args.Error(1)
}

func (m *mockStore) UpdateContactStatus(ctx context.Context, username string, status model.ContactStatus) error {
	return m.Called(ctx, username, status).Error(0)
}

func (m *mockStore) ListStaleRedditors(ctx context.Context, olderThan time.Time, limit int) ([]model.RedditorProfile, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.RedditorProfile), args.Error(1)
}

func (m *mockStore) SaveCheckpoint(ctx context.Context, rec model.CheckpointRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockStore) LatestCheckpoint(ctx context.Context, runKey string) (*model.CheckpointRecord, error) {
	args := m.Called(ctx, runKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckpointRecord), args.Error(1)
}

func (m *mockStore) ClearCheckpoints(ctx context.Context, runKey string) error {
	return m.Called(ctx, runKey).Error(0)
}

func (m *mockStore) RecordSubredditStat(ctx context.Context, name string, totalPosts, relevantPosts int) error {
	return m.Called(ctx, name, totalPosts, relevantPosts).Error(0)
}

func (m *mockStore) ListSubredditStats(ctx context.Context) ([]model.SubredditStat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SubredditStat), args.Error(1)
}

func (m *mockStore) CreateRun(ctx context.Context, params model.ScrapeParams) (*model.Run, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	return m.Called(ctx, runID, summary).Error(0)
}

func (m *mockStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
