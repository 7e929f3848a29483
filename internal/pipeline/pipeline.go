// Package pipeline orchestrates the lead-generation run: scrape posts,
// deduplicate, classify relevance, fetch comment threads, draft replies, and
// extract scored redditor profiles — checkpointing each stage so an
// interrupted run resumes without repeating paid or rate-limited calls.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ovarra/leadgen-cli/internal/config"
	"github.com/ovarra/leadgen-cli/internal/model"
	"github.com/ovarra/leadgen-cli/internal/scorer"
	"github.com/ovarra/leadgen-cli/internal/store"
	"github.com/ovarra/leadgen-cli/pkg/anthropic"
	"github.com/ovarra/leadgen-cli/pkg/reddit"
)

// Pipeline runs the scrape → classify → comments → reply → extract sequence.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	reddit    reddit.Client
	anthropic anthropic.Client
	policy    scorer.Policy
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, st store.Store, redditClient reddit.Client, aiClient anthropic.Client) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		reddit:    redditClient,
		anthropic: aiClient,
		policy:    scorer.DefaultPolicy(cfg.Scoring.Keywords, cfg.Scoring.Denylist),
	}
}

// Run executes a full pipeline run for the given parameters. Each run is
// sequential; the caller blocks until the run reaches done or fails fatally,
// so a returned success means the data is persisted and queryable. Per-item
// failures never abort the run — only validation and startup errors do.
func (p *Pipeline) Run(ctx context.Context, params model.ScrapeParams) (*model.RunSummary, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	runKey := params.RunKey()
	log := zap.L().With(zap.String("run_key", runKey))
	log.Info("pipeline: starting run",
		zap.Strings("subreddits", params.Subreddits),
		zap.Strings("keywords", params.Keywords),
		zap.Int("post_limit", params.PostLimit),
		zap.Int("max_age_days", params.MaxAgeDays),
		zap.Bool("force", params.Force),
	)

	run, err := p.store.CreateRun(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	summary := &model.RunSummary{}
	usage := &anthropic.TokenUsage{}

	if params.Force {
		if err := p.store.ClearCheckpoints(ctx, runKey); err != nil {
			return nil, eris.Wrap(err, "pipeline: clear checkpoints")
		}
		log.Info("pipeline: force requested, checkpoints cleared")
	}

	posts, resumeAfter, err := p.resumePoint(ctx, runKey, params.Force, summary)
	if err != nil {
		return nil, err
	}
	if resumeAfter >= 0 {
		log.Info("pipeline: resuming from checkpoint",
			zap.String("stage", string(model.Stages[resumeAfter])),
			zap.Int("posts", len(posts)),
			zap.Int("processed", summary.Processed),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
		)
	}

	// Stage: scraped.
	if resumeAfter < model.StageIndex(model.StageScraped) {
		posts = p.scrapeStage(ctx, params)
		if err := p.saveStage(ctx, runKey, model.StageScraped, posts, summary); err != nil {
			return nil, err
		}
	}
	totalBySub := countBySubreddit(posts)

	// Stage: classified. The dedup gate runs first so duplicates never reach
	// a paid classification call.
	if resumeAfter < model.StageIndex(model.StageClassified) {
		posts = p.gateStage(ctx, posts, summary)
		posts = p.classifyStage(ctx, posts, summary, usage)
		if err := p.saveStage(ctx, runKey, model.StageClassified, posts, summary); err != nil {
			return nil, err
		}
		p.recordAnalytics(ctx, totalBySub, posts)
	}

	// Stage: commented.
	if resumeAfter < model.StageIndex(model.StageCommented) {
		posts = p.commentsStage(ctx, posts, summary)
		if err := p.saveStage(ctx, runKey, model.StageCommented, posts, summary); err != nil {
			return nil, err
		}
	}

	// Stage: replied. Persists suggestions as it goes.
	if resumeAfter < model.StageIndex(model.StageReplied) {
		posts = p.replyStage(ctx, posts, summary, usage)
		if err := p.saveStage(ctx, runKey, model.StageReplied, posts, summary); err != nil {
			return nil, err
		}
	}

	// Extraction feeds off the qualified posts; per-candidate failures are
	// dropped with a warning and never fail the run.
	p.extractStage(ctx, posts, summary)

	// Done. Checkpoints exist for crash recovery only; a completed run
	// clears them so an identical re-invocation starts fresh and observes
	// its duplicates through the gate instead.
	if err := p.store.ClearCheckpoints(ctx, runKey); err != nil {
		log.Warn("pipeline: failed to clear checkpoints", zap.Error(err))
	}

	summary.Finalize()
	usage.LogCost(p.cfg.Anthropic.Model, "run")

	if err := p.store.CompleteRun(ctx, run.ID, summary); err != nil {
		log.Warn("pipeline: failed to record run completion", zap.Error(err))
	}

	log.Info("pipeline: run complete",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("redditors_extracted", summary.RedditorsExtracted),
		zap.Int("redditors_saved", summary.RedditorsSaved),
		zap.String("status", string(summary.Status)),
	)
	return summary, nil
}

// resumePoint loads the most advanced checkpoint for the run key. Returns
// the checkpointed posts and the index of the completed stage, or -1 when
// starting fresh. The counters tallied before the checkpoint was saved are
// restored into summary so the resumed run's outcome reflects the whole run.
func (p *Pipeline) resumePoint(ctx context.Context, runKey string, force bool, summary *model.RunSummary) ([]model.Post, int, error) {
	if force {
		return nil, -1, nil
	}
	cp, err := p.store.LatestCheckpoint(ctx, runKey)
	if err != nil {
		return nil, -1, eris.Wrap(err, "pipeline: load checkpoint")
	}
	if cp == nil {
		return nil, -1, nil
	}
	*summary = cp.Summary
	return cp.Posts, model.StageIndex(cp.Stage), nil
}

func (p *Pipeline) saveStage(ctx context.Context, runKey string, stage model.Stage, posts []model.Post, summary *model.RunSummary) error {
	err := p.store.SaveCheckpoint(ctx, model.CheckpointRecord{
		RunKey:  runKey,
		Stage:   stage,
		Posts:   posts,
		Summary: *summary,
		SavedAt: time.Now().UTC(),
	})
	if err != nil {
		return eris.Wrapf(err, "pipeline: save %s checkpoint", stage)
	}
	zap.L().Debug("pipeline: stage checkpointed",
		zap.String("run_key", runKey),
		zap.String("stage", string(stage)),
		zap.Int("posts", len(posts)),
	)
	return nil
}

// recordAnalytics feeds per-subreddit totals into the tracker. Analytics are
// observational; failures only warn.
func (p *Pipeline) recordAnalytics(ctx context.Context, totalBySub map[string]int, relevant []model.Post) {
	relevantBySub := countBySubreddit(relevant)
	for sub, total := range totalBySub {
		if err := p.store.RecordSubredditStat(ctx, sub, total, relevantBySub[sub]); err != nil {
			zap.L().Warn("pipeline: failed to record subreddit stats",
				zap.String("subreddit", sub),
				zap.Error(err),
			)
		}
	}
}

func countBySubreddit(posts []model.Post) map[string]int {
	counts := make(map[string]int, len(posts))
	for i := range posts {
		counts[posts[i].Subreddit]++
	}
	return counts
}
