package pipeline

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovarra/leadgen-cli/internal/model"
	"github.com/ovarra/leadgen-cli/internal/scorer"
	"github.com/ovarra/leadgen-cli/pkg/reddit"
)

// extractStage pulls every participant out of the processed posts, scores
// them, and upserts their profiles. A candidate that fails profiling is
// logged and dropped without touching the post counters: the suggestion was
// already stored, so losing one commenter never marks the post failed.
func (p *Pipeline) extractStage(ctx context.Context, posts []model.Post, summary *model.RunSummary) {
	candidates := p.collectCandidates(posts)
	summary.RedditorsExtracted = len(candidates)
	if len(candidates) == 0 {
		return
	}

	now := time.Now().UTC()
	for _, cand := range candidates {
		saved, err := p.scoreAndSave(ctx, cand, now)
		if err != nil {
			zap.L().Warn("extract: candidate dropped",
				zap.String("username", cand.username),
				zap.Error(err),
			)
			continue
		}
		if saved {
			summary.RedditorsSaved++
		}
	}

	zap.L().Info("extract: profiled redditors",
		zap.Int("extracted", summary.RedditorsExtracted),
		zap.Int("saved", summary.RedditorsSaved),
	)
}

// candidate is one distinct username found in the processed posts, with
// the post URLs it appeared in.
type candidate struct {
	username    string
	isAuthor    bool
	sourcePosts []string
}

// collectCandidates dedupes authors and commenters case-insensitively.
// Authorship is sticky: a user who authored any post is scored as an
// author even when they also appear as a commenter elsewhere.
func (p *Pipeline) collectCandidates(posts []model.Post) []candidate {
	byName := make(map[string]*candidate)
	var order []string

	add := func(username, postURL string, isAuthor bool) {
		if p.policy.Denied(username) {
			return
		}
		key := strings.ToLower(username)
		c, ok := byName[key]
		if !ok {
			c = &candidate{username: username}
			byName[key] = c
			order = append(order, key)
		}
		if isAuthor {
			c.isAuthor = true
		}
		for _, u := range c.sourcePosts {
			if u == postURL {
				return
			}
		}
		c.sourcePosts = append(c.sourcePosts, postURL)
	}

	for _, post := range posts {
		add(post.Author, post.URL, true)
		for _, comment := range model.FlattenComments(post.Comments) {
			add(comment.Author, post.URL, false)
		}
	}

	out := make([]candidate, 0, len(order))
	for _, key := range order {
		out = append(out, *byName[key])
	}
	return out
}

func (p *Pipeline) scoreAndSave(ctx context.Context, cand candidate, now time.Time) (bool, error) {
	profile, err := p.reddit.Profile(ctx, cand.username)
	if err != nil {
		if errors.Is(err, reddit.ErrNotFound) {
			zap.L().Debug("extract: profile unavailable", zap.String("username", cand.username))
			return false, nil
		}
		return false, err
	}

	comments, err := p.reddit.UserComments(ctx, cand.username, p.cfg.Reddit.ProfileCommentLimit)
	if err != nil {
		return false, err
	}

	eval := p.policy.Evaluate(&scorer.Account{
		Username:       profile.Username,
		AccountAgeDays: float64(profile.AccountAgeDays(now)),
		TotalKarma:     profile.TotalKarma,
		IsAuthor:       cand.isAuthor,
		Comments:       comments,
	}, now)

	rec := &model.RedditorProfile{
		Username:          profile.Username,
		AccountAgeDays:    profile.AccountAgeDays(now),
		TotalKarma:        profile.TotalKarma,
		CommentKarma:      profile.CommentKarma,
		PostKarma:         profile.PostKarma,
		AuthenticityScore: int(math.Round(eval.AuthenticityScore)),
		NeedScore:         int(math.Round(eval.NeedScore)),
		Priority:          eval.Priority,
		IsAuthentic:       eval.IsAuthentic,
		IsActive:          eval.IsActive,
		ContactStatus:     model.ContactStatusPending,
		SocialLinks:       profile.SocialLinks,
		FirstSeen:         now,
		LastUpdated:       now,
	}
	for _, u := range cand.sourcePosts {
		rec.AddSourcePost(u)
	}

	// Re-scoring refreshes everything except identity and outreach state.
	existing, err := p.store.GetRedditor(ctx, rec.Username)
	if err != nil {
		return false, err
	}
	if existing != nil {
		rec.FirstSeen = existing.FirstSeen
		rec.ContactStatus = existing.ContactStatus
		for _, u := range existing.SourcePosts {
			rec.AddSourcePost(u)
		}
	}

	if err := p.store.UpsertRedditor(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}
