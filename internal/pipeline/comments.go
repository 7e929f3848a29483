package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/ovarra/leadgen-cli/internal/model"
)

// commentsStage attaches each relevant post's discussion thread. The
// thread feeds both reply drafting and commenter extraction, so a post
// whose comments cannot be fetched is dropped and counted failed rather
// than carried forward half-loaded.
func (p *Pipeline) commentsStage(ctx context.Context, posts []model.Post, summary *model.RunSummary) []model.Post {
	loaded := posts[:0]
	for _, post := range posts {
		comments, err := p.reddit.Comments(ctx, post.URL)
		if err != nil {
			summary.Failed++
			zap.L().Warn("comments: fetch failed", zap.String("url", post.URL), zap.Error(err))
			continue
		}
		post.Comments = comments
		loaded = append(loaded, post)
	}

	zap.L().Info("comments: loaded threads", zap.Int("posts", len(loaded)))
	return loaded
}
