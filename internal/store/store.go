// Package store persists suggestions, redditor profiles, checkpoints, and
// analytics. Two implementations exist: Postgres (pgxpool) for shared
// deployments and SQLite (modernc) for local single-user use.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ovarra/leadgen-cli/internal/model"
)

// ErrDuplicateSuggestion reports an insert for a post URL that already has a
// stored suggestion. Callers treat it as an already-done item, not a failure.
var ErrDuplicateSuggestion = errors.New("store: suggestion already exists for post url")

// RedditorFilter specifies criteria for listing redditor profiles.
type RedditorFilter struct {
	Priority      model.Priority      `json:"priority,omitempty"`
	ContactStatus model.ContactStatus `json:"contact_status,omitempty"`
	AuthenticOnly bool                `json:"authentic_only,omitempty"`
	Limit         int                 `json:"limit,omitempty"`
}

// Store defines the persistence interface for the lead-generation pipeline.
// All writes are upsert-by-unique-key so repeated runs are safe.
type Store interface {
	// Suggestions. At most one exists per post URL.
	InsertSuggestion(ctx context.Context, s model.Suggestion) error
	SuggestionExists(ctx context.Context, postURL string) (bool, error)
	ListRecentSuggestions(ctx context.Context, since time.Time) ([]model.Suggestion, error)
	UpdateSuggestionStatus(ctx context.Context, id string, status model.SuggestionStatus) error

	// Redditor profiles, keyed by username. GetRedditor returns (nil, nil)
	// for unknown usernames.
	GetRedditor(ctx context.Context, username string) (*model.RedditorProfile, error)
	UpsertRedditor(ctx context.Context, p *model.RedditorProfile) error
	ListRedditors(ctx context.Context, filter RedditorFilter) ([]model.RedditorProfile, error)
	UpdateContactStatus(ctx context.Context, username string, status model.ContactStatus) error
	ListStaleRedditors(ctx context.Context, olderThan time.Time, limit int) ([]model.RedditorProfile, error)

	// Checkpoints, keyed by (run key, stage). One active record per pair.
	SaveCheckpoint(ctx context.Context, rec model.CheckpointRecord) error
	LatestCheckpoint(ctx context.Context, runKey string) (*model.CheckpointRecord, error)
	ClearCheckpoints(ctx context.Context, runKey string) error

	// Subreddit analytics, accumulated additively.
	RecordSubredditStat(ctx context.Context, name string, totalPosts, relevantPosts int) error
	ListSubredditStats(ctx context.Context) ([]model.SubredditStat, error)

	// Run history.
	CreateRun(ctx context.Context, params model.ScrapeParams) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, summary *model.RunSummary) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
