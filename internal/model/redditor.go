package model

import (
	"sort"
	"time"
)

// Priority buckets a redditor by need score for outreach triage.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ContactStatus tracks outreach progress for a redditor.
type ContactStatus string

const (
	ContactStatusPending   ContactStatus = "pending"
	ContactStatusApproved  ContactStatus = "approved"
	ContactStatusContacted ContactStatus = "contacted"
	ContactStatusResponded ContactStatus = "responded"
	ContactStatusRejected  ContactStatus = "rejected"
)

// ValidContactStatus reports whether s is one of the known statuses.
func ValidContactStatus(s ContactStatus) bool {
	switch s {
	case ContactStatusPending, ContactStatusApproved, ContactStatusContacted,
		ContactStatusResponded, ContactStatusRejected:
		return true
	}
	return false
}

// RedditorProfile is a scored lead candidate. Username is the unique key;
// profiles are created on first extraction and merged on re-encounter
// (source posts unioned, scores recomputed over all known evidence).
type RedditorProfile struct {
	Username          string            `json:"username"`
	AccountAgeDays    int               `json:"account_age_days"`
	TotalKarma        int               `json:"total_karma"`
	CommentKarma      int               `json:"comment_karma"`
	PostKarma         int               `json:"post_karma"`
	AuthenticityScore int               `json:"authenticity_score"`
	NeedScore         int               `json:"need_score"`
	Priority          Priority          `json:"priority"`
	IsAuthentic       bool              `json:"is_authentic"`
	IsActive          bool              `json:"is_active"`
	SourcePosts       []string          `json:"source_posts"`
	ContactStatus     ContactStatus     `json:"contact_status"`
	SocialLinks       map[string]string `json:"social_links,omitempty"`
	FirstSeen         time.Time         `json:"first_seen"`
	LastUpdated       time.Time         `json:"last_updated"`
}

// AddSourcePost unions url into SourcePosts, keeping the slice sorted and
// free of duplicates.
func (p *RedditorProfile) AddSourcePost(url string) {
	for _, existing := range p.SourcePosts {
		if existing == url {
			return
		}
	}
	p.SourcePosts = append(p.SourcePosts, url)
	sort.Strings(p.SourcePosts)
}
