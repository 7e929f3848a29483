package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/ovarra/leadgen-cli/internal/model"
)

// gateStage drops posts that already produced a suggestion in an earlier
// run. The post URL is the identity: a post seen twice is the same lead,
// and contacting it twice burns the account's credibility. Lookup errors
// fail open so a flaky store never silently discards a fresh lead.
func (p *Pipeline) gateStage(ctx context.Context, posts []model.Post, summary *model.RunSummary) []model.Post {
	fresh := posts[:0]
	for _, post := range posts {
		exists, err := p.store.SuggestionExists(ctx, post.URL)
		if err != nil {
			zap.L().Warn("gate: dedup lookup failed", zap.String("url", post.URL), zap.Error(err))
			fresh = append(fresh, post)
			continue
		}
		if exists {
			summary.Skipped++
			zap.L().Debug("gate: skipping processed post", zap.String("url", post.URL))
			continue
		}
		fresh = append(fresh, post)
	}

	if summary.Skipped > 0 {
		zap.L().Info("gate: skipped duplicates", zap.Int("skipped", summary.Skipped), zap.Int("remaining", len(fresh)))
	}
	return fresh
}
