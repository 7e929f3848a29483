package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ovarra/leadgen-cli/internal/model"
	"github.com/ovarra/leadgen-cli/pkg/anthropic"
)

const classifySystemPrompt = `You screen Reddit posts for a content-protection service that helps individual creators remove stolen or leaked private content.

A post is RELEVANT only when the author is an individual creator describing their OWN content being stolen, leaked, or reposted without consent, or directly asking how to get such content taken down. News stories, piracy-site discussions, legal debates, corporate copyright disputes, people looking FOR leaked content, and hypothetical questions are NOT relevant.

You will receive a numbered list of posts. Respond with a JSON array, one object per post, in the same order: [{"index": <n>, "relevant": <true|false>}]. Respond with the JSON array only.`

// classifyStage sends posts to the model in batches and keeps those the
// model marks relevant. A failed batch counts every post in it as failed;
// later batches still run so a transient API error costs one batch, not
// the run.
func (p *Pipeline) classifyStage(ctx context.Context, posts []model.Post, summary *model.RunSummary, usage *anthropic.TokenUsage) []model.Post {
	if len(posts) == 0 {
		return posts
	}

	batchSize := p.cfg.Anthropic.ClassifyBatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	delay := time.Duration(p.cfg.Anthropic.BatchDelaySecs * float64(time.Second))

	var relevant []model.Post
	for start := 0; start < len(posts); start += batchSize {
		end := start + batchSize
		if end > len(posts) {
			end = len(posts)
		}
		batch := posts[start:end]

		if start > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				summary.Failed += len(posts) - start
				zap.L().Warn("classify: canceled", zap.Error(ctx.Err()))
				return relevant
			}
		}

		kept, err := p.classifyBatch(ctx, batch, usage)
		if err != nil {
			summary.Failed += len(batch)
			zap.L().Warn("classify: batch failed",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			continue
		}
		relevant = append(relevant, kept...)
	}

	zap.L().Info("classify: screened posts",
		zap.Int("input", len(posts)),
		zap.Int("relevant", len(relevant)),
	)
	return relevant
}

// classifyVerdict is one element of the model's JSON array response.
type classifyVerdict struct {
	Index    int  `json:"index"`
	Relevant bool `json:"relevant"`
}

func (p *Pipeline) classifyBatch(ctx context.Context, batch []model.Post, usage *anthropic.TokenUsage) ([]model.Post, error) {
	var b strings.Builder
	for i, post := range batch {
		body := post.Body
		if len(body) > 2000 {
			body = body[:2000]
		}
		fmt.Fprintf(&b, "Post %d\nSubreddit: r/%s\nTitle: %s\nBody: %s\n\n", i, post.Subreddit, post.Title, body)
	}

	resp, err := p.anthropic.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.cfg.Anthropic.Model,
		MaxTokens: p.cfg.Anthropic.MaxTokens,
		System:    classifySystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: b.String()},
		},
	})
	if err != nil {
		return nil, err
	}
	usage.Add(resp.Usage)

	verdicts, err := parseVerdicts(resp.Text)
	if err != nil {
		return nil, err
	}

	var kept []model.Post
	for _, v := range verdicts {
		if !v.Relevant || v.Index < 0 || v.Index >= len(batch) {
			continue
		}
		post := batch[v.Index]
		post.Relevant = true
		kept = append(kept, post)
	}
	return kept, nil
}

// parseVerdicts extracts the JSON array from the model's response text,
// tolerating prose or code fences around it.
func parseVerdicts(text string) ([]classifyVerdict, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end <= start {
		return nil, eris.Errorf("classify: no JSON array in response: %.80q", text)
	}
	var verdicts []classifyVerdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &verdicts); err != nil {
		return nil, eris.Wrap(err, "classify: parse verdicts")
	}
	return verdicts, nil
}
