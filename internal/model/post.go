package model

import "time"

// Post is a Reddit post pulled in by a keyword search. The URL is the
// unique key for deduplication; a post is immutable once classified.
type Post struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Subreddit string    `json:"subreddit"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Relevant  bool      `json:"relevant"`
	Comments  []Comment `json:"comments,omitempty"`
	Reply     string    `json:"reply,omitempty"`
}

// Comment is a single comment in a post's thread. Replies preserve the
// tree shape returned by the comments endpoint.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	Replies   []Comment `json:"replies,omitempty"`

	// Analysis fields, populated by the scorer for a candidate's own
	// recent comments.
	ContainsKeywords bool    `json:"contains_keywords,omitempty"`
	Sentiment        float64 `json:"sentiment,omitempty"`
}

// FlattenComments returns the comment tree in depth-first order.
func FlattenComments(comments []Comment) []Comment {
	var flat []Comment
	for _, c := range comments {
		replies := c.Replies
		c.Replies = nil
		flat = append(flat, c)
		flat = append(flat, FlattenComments(replies)...)
	}
	return flat
}

// SuggestionStatus tracks the review state of a drafted reply.
type SuggestionStatus string

const (
	SuggestionStatusNew      SuggestionStatus = "new"
	SuggestionStatusApproved SuggestionStatus = "approved"
	SuggestionStatusSent     SuggestionStatus = "sent"
	SuggestionStatusIgnored  SuggestionStatus = "ignored"
)

// ValidSuggestionStatus reports whether s is one of the known statuses.
func ValidSuggestionStatus(s SuggestionStatus) bool {
	switch s {
	case SuggestionStatusNew, SuggestionStatusApproved, SuggestionStatusSent, SuggestionStatusIgnored:
		return true
	}
	return false
}

// Suggestion is a drafted outreach reply for a relevant post. At most one
// suggestion exists per post URL (enforced by the store).
type Suggestion struct {
	ID        string           `json:"id"`
	PostTitle string           `json:"post_title"`
	PostURL   string           `json:"post_url"`
	Subreddit string           `json:"subreddit"`
	Reply     string           `json:"reply"`
	Status    SuggestionStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}
