package model

import "time"

// SubredditStat accumulates per-community conversion statistics across runs.
// Name is the unique key; counters are mutated additively per run.
type SubredditStat struct {
	Name           string    `json:"name"`
	TotalPosts     int       `json:"total_posts"`
	TotalRelevant  int       `json:"total_relevant"`
	ConversionRate float64   `json:"conversion_rate"`
	Runs           int       `json:"runs"`
	FirstSeen      time.Time `json:"first_seen"`
	LastScraped    time.Time `json:"last_scraped"`
}
