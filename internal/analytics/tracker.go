// Package analytics accumulates per-subreddit conversion statistics across
// runs and turns them into scraping recommendations. It is purely
// observational: nothing here feeds back into pipeline control flow.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ovarra/leadgen-cli/internal/config"
	"github.com/ovarra/leadgen-cli/internal/model"
)

// Store is the persistence surface the tracker needs.
type Store interface {
	RecordSubredditStat(ctx context.Context, name string, totalPosts, relevantPosts int) error
	ListSubredditStats(ctx context.Context) ([]model.SubredditStat, error)
}

// Tracker records per-run subreddit outcomes and reports on them.
type Tracker struct {
	store Store
	cfg   config.AnalyticsConfig
}

// NewTracker creates a Tracker backed by the given store.
func NewTracker(store Store, cfg config.AnalyticsConfig) *Tracker {
	return &Tracker{store: store, cfg: cfg}
}

// Record adds one run's counts for a subreddit to its running aggregate.
func (t *Tracker) Record(ctx context.Context, subreddit string, totalPosts, relevantPosts int) error {
	if subreddit == "" {
		return eris.New("analytics: subreddit name is required")
	}
	if err := t.store.RecordSubredditStat(ctx, subreddit, totalPosts, relevantPosts); err != nil {
		return eris.Wrap(err, "analytics: record subreddit stat")
	}
	zap.L().Debug("analytics: recorded subreddit stats",
		zap.String("subreddit", subreddit),
		zap.Int("total_posts", totalPosts),
		zap.Int("relevant_posts", relevantPosts),
	)
	return nil
}

// Report summarizes accumulated stats into recommendations.
type Report struct {
	Stats         []model.SubredditStat `json:"stats"`
	Recommended   []string              `json:"recommended"`
	LowPerformers []string              `json:"low_performers"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// Report builds the current analytics report. Recommended subreddits convert
// above the high threshold; low performers convert below the low threshold
// and have enough posts to be a meaningful sample.
func (t *Tracker) Report(ctx context.Context) (*Report, error) {
	stats, err := t.store.ListSubredditStats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: list subreddit stats")
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].ConversionRate > stats[j].ConversionRate
	})

	report := &Report{Stats: stats, GeneratedAt: time.Now().UTC()}
	for _, s := range stats {
		switch {
		case s.ConversionRate > t.cfg.HighConversionRate:
			report.Recommended = append(report.Recommended, s.Name)
		case s.TotalPosts >= t.cfg.MinSamplePosts && s.ConversionRate < t.cfg.LowConversionRate:
			report.LowPerformers = append(report.LowPerformers, s.Name)
		}
	}
	return report, nil
}

// TopSubreddits returns the n best-converting subreddits.
func (t *Tracker) TopSubreddits(ctx context.Context, n int) ([]model.SubredditStat, error) {
	report, err := t.Report(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(report.Stats) > n {
		report.Stats = report.Stats[:n]
	}
	return report.Stats, nil
}
