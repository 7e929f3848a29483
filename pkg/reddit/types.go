package reddit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ovarra/leadgen-cli/internal/model"
)

// listing is the generic Reddit listing envelope.
type listing struct {
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

// thing is a kinded item in a listing. t3 = post, t1 = comment.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type postData struct {
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Subreddit  string  `json:"subreddit"`
	Author     string  `json:"author"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}

type commentData struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	// Replies is a nested listing, except Reddit sends "" when empty.
	Replies json.RawMessage `json:"replies"`
}

type aboutResponse struct {
	Data struct {
		Name         string  `json:"name"`
		CreatedUTC   float64 `json:"created_utc"`
		TotalKarma   int     `json:"total_karma"`
		LinkKarma    int     `json:"link_karma"`
		CommentKarma int     `json:"comment_karma"`
		IsSuspended  bool    `json:"is_suspended"`
		Subreddit    struct {
			PublicDescription string `json:"public_description"`
		} `json:"subreddit"`
	} `json:"data"`
}

// Profile is the raw profile data returned by the about endpoint.
type Profile struct {
	Username     string
	Created      time.Time
	TotalKarma   int
	PostKarma    int
	CommentKarma int
	Description  string
	SocialLinks  map[string]string
}

// AccountAgeDays computes the account age relative to now.
func (p *Profile) AccountAgeDays(now time.Time) int {
	if p.Created.IsZero() || p.Created.After(now) {
		return 0
	}
	return int(now.Sub(p.Created).Hours() / 24)
}

func fromUTC(ts float64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(ts), 0).UTC()
}

func (d postData) toPost() model.Post {
	return model.Post{
		URL:       "https://www.reddit.com" + d.Permalink,
		Title:     d.Title,
		Body:      d.Selftext,
		Subreddit: d.Subreddit,
		Author:    d.Author,
		CreatedAt: fromUTC(d.CreatedUTC),
	}
}

// parseCommentTree converts a t1 thing into a model.Comment, recursing into
// nested replies. Non-comment kinds (e.g. "more" stubs) are skipped.
func parseCommentTree(t thing) (model.Comment, bool) {
	if t.Kind != "t1" {
		return model.Comment{}, false
	}
	var d commentData
	if err := json.Unmarshal(t.Data, &d); err != nil {
		return model.Comment{}, false
	}

	c := model.Comment{
		ID:        d.ID,
		Author:    d.Author,
		Body:      d.Body,
		Score:     d.Score,
		CreatedAt: fromUTC(d.CreatedUTC),
	}

	// Replies is "" when empty, a listing object otherwise.
	trimmed := strings.TrimSpace(string(d.Replies))
	if trimmed != "" && trimmed != `""` && trimmed != "null" {
		var nested listing
		if err := json.Unmarshal(d.Replies, &nested); err == nil {
			for _, child := range nested.Data.Children {
				if reply, ok := parseCommentTree(child); ok {
					c.Replies = append(c.Replies, reply)
				}
			}
		}
	}

	return c, true
}
