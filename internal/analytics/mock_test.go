package analytics

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ovarra/leadgen-cli/internal/model"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) RecordSubredditStat(ctx context.Context, name string, totalPosts, relevantPosts int) error {
	args := m.Called(ctx, name, totalPosts, relevantPosts)
	return args.Error(0)
}

func (m *mockStore) ListSubredditStats(ctx context.Context) ([]model.SubredditStat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SubredditStat), args.Error(1)
}
