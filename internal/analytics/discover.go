package analytics

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ovarra/leadgen-cli/internal/model"
)

// subredditMention matches r/name or /r/name references in free text.
var subredditMention = regexp.MustCompile(`(?i)\br/([A-Za-z0-9][A-Za-z0-9_]{2,20})\b`)

// genericSubreddits are defaults and catch-alls that mentions point at
// constantly but that are useless as scraping targets.
var genericSubreddits = map[string]bool{
	"all":       true,
	"popular":   true,
	"askreddit": true,
	"pics":      true,
	"funny":     true,
	"videos":    true,
}

// DiscoverFromPosts scans post bodies, titles, and comment trees for
// subreddit mentions and returns candidates ordered by mention count.
// Generic catch-alls and already-known subreddits are excluded.
func DiscoverFromPosts(posts []model.Post, known []string) []string {
	knownSet := make(map[string]bool, len(known))
	for _, k := range known {
		knownSet[strings.ToLower(k)] = true
	}

	counts := make(map[string]int)
	for i := range posts {
		countMentions(posts[i].Title, counts)
		countMentions(posts[i].Body, counts)
		for _, c := range model.FlattenComments(posts[i].Comments) {
			countMentions(c.Body, counts)
		}
	}

	candidates := make([]string, 0, len(counts))
	for name := range counts {
		if genericSubreddits[name] || knownSet[name] {
			continue
		}
		candidates = append(candidates, name)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if counts[candidates[i]] != counts[candidates[j]] {
			return counts[candidates[i]] > counts[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})
	return candidates
}

func countMentions(text string, counts map[string]int) {
	for _, m := range subredditMention.FindAllStringSubmatch(text, -1) {
		counts[strings.ToLower(m[1])]++
	}
}
