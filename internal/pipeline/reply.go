package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ovarra/leadgen-cli/internal/model"
	"github.com/ovarra/leadgen-cli/internal/store"
	"github.com/ovarra/leadgen-cli/pkg/anthropic"
)

const replySystemPrompt = `You draft a short, genuinely helpful Reddit reply for someone whose private content was stolen or leaked. Write as a peer who has dealt with takedowns before, not as a company.

Rules:
- Lead with concrete, actionable advice (DMCA notices, host abuse contacts, documentation).
- Acknowledge the situation in one sentence, no excessive sympathy.
- Mention that professional takedown services exist, once, without naming any.
- No links, no signatures, no markdown headers. 3-6 sentences.
- Match the tone of the subreddit thread you are given.`

const replyUserPrompt = `Subreddit: r/%s
Post title: %s
Post body:
%s

Existing comments:
%s

Draft the reply.`

// replyStage drafts an outreach reply for each post and persists it as a
// suggestion. Drafting and persistence failures both count the post as
// failed; only a stored suggestion counts as processed, since the dedup
// gate keys off the stored row. A resumed run can replay posts whose
// suggestions were stored before the crash; those surface as duplicate
// inserts and count as skipped.
func (p *Pipeline) replyStage(ctx context.Context, posts []model.Post, summary *model.RunSummary, usage *anthropic.TokenUsage) []model.Post {
	done := posts[:0]
	for _, post := range posts {
		reply, err := p.draftReply(ctx, post, usage)
		if err != nil {
			summary.Failed++
			zap.L().Warn("reply: draft failed", zap.String("url", post.URL), zap.Error(err))
			continue
		}
		post.Reply = reply

		sg := model.Suggestion{
			PostTitle: post.Title,
			PostURL:   post.URL,
			Subreddit: post.Subreddit,
			Reply:     reply,
			Status:    model.SuggestionStatusNew,
		}
		if err := p.store.InsertSuggestion(ctx, sg); err != nil {
			if errors.Is(err, store.ErrDuplicateSuggestion) {
				summary.Skipped++
				zap.L().Debug("reply: suggestion already stored", zap.String("url", post.URL))
				done = append(done, post)
				continue
			}
			summary.Failed++
			zap.L().Warn("reply: persist failed", zap.String("url", post.URL), zap.Error(err))
			continue
		}

		summary.Processed++
		done = append(done, post)
	}

	zap.L().Info("reply: drafted suggestions", zap.Int("processed", summary.Processed))
	return done
}

func (p *Pipeline) draftReply(ctx context.Context, post model.Post, usage *anthropic.TokenUsage) (string, error) {
	thread := formatThread(post.Comments)
	if thread == "" {
		thread = "(no comments yet)"
	}

	body := post.Body
	if len(body) > 4000 {
		body = body[:4000]
	}

	resp, err := p.anthropic.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.Model,
		MaxTokens: p.cfg.Anthropic.MaxTokens,
		System:    replySystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(replyUserPrompt, post.Subreddit, post.Title, body, thread)},
		},
	})
	if err != nil {
		return "", err
	}
	usage.Add(resp.Usage)
	return strings.TrimSpace(resp.Text), nil
}

// formatThread flattens the comment tree into prompt-sized plain text,
// capped so a large thread cannot blow the context window.
func formatThread(comments []model.Comment) string {
	const maxComments = 20
	flat := model.FlattenComments(comments)
	if len(flat) > maxComments {
		flat = flat[:maxComments]
	}

	var b strings.Builder
	for _, c := range flat {
		body := c.Body
		if len(body) > 500 {
			body = body[:500]
		}
		fmt.Fprintf(&b, "u/%s: %s\n", c.Author, body)
	}
	return strings.TrimSpace(b.String())
}
