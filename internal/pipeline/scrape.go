package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ovarra/leadgen-cli/internal/model"
)

// scrapeStage searches every subreddit×keyword combination sequentially —
// the platform's rate budget is shared, so parallel searches would only
// compound backoff. A failed combination contributes nothing but never
// aborts the run; other combinations may still yield posts.
func (p *Pipeline) scrapeStage(ctx context.Context, params model.ScrapeParams) []model.Post {
	maxAge := time.Duration(params.MaxAgeDays) * 24 * time.Hour
	seen := make(map[string]bool)
	var posts []model.Post

	for _, sub := range params.Subreddits {
		for _, kw := range params.Keywords {
			found, err := p.reddit.Search(ctx, sub, kw, params.PostLimit, maxAge)
			if err != nil {
				zap.L().Warn("scrape: search failed",
					zap.String("subreddit", sub),
					zap.String("keyword", kw),
					zap.Error(err),
				)
				continue
			}
			// The same post often matches several keywords.
			for _, post := range found {
				if seen[post.URL] {
					continue
				}
				seen[post.URL] = true
				posts = append(posts, post)
			}
		}
	}

	zap.L().Info("scrape: collected posts",
		zap.Int("posts", len(posts)),
		zap.Int("subreddits", len(params.Subreddits)),
		zap.Int("keywords", len(params.Keywords)),
	)
	return posts
}
