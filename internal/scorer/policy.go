// Package scorer evaluates content-platform accounts for authenticity and
// need, producing the priority that drives lead outreach ordering.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Policy holds the weights, keyword lists, and thresholds used to score a
// candidate account. Authenticity weights sum to 100, as do need weights.
type Policy struct {
	// Authenticity components (sum = 100).
	AgeWeight      float64 // account-age component
	KarmaWeight    float64 // karma component (log-saturating)
	ActivityWeight float64 // flat bonus for recently active accounts

	AgeSaturationDays  int // age at which the age component maxes out
	KarmaSaturation    int // karma at which the karma component maxes out
	ActivityWindowDays int // a comment within this window counts as active

	// Throwaway gate: accounts younger than ThrowawayAgeDays with less
	// than ThrowawayKarma total karma are capped at ThrowawayCap.
	ThrowawayAgeDays int
	ThrowawayKarma   int
	ThrowawayCap     float64

	// Need components (sum = 100).
	KeywordWeight  float64 // scaled by the fraction of comments matching keywords
	DistressWeight float64 // scaled by mean negative sentiment
	AuthorWeight   float64 // flat bonus when the candidate authored the post

	// Keywords matched against comment bodies (case-insensitive).
	Keywords []string

	// Denylist of usernames never treated as candidates.
	Denylist []string

	// Thresholds.
	AuthenticMin  float64 // authenticity at or above this marks the account authentic
	HighNeedMin   float64 // need strictly above this is high priority
	MediumNeedMin float64 // need at or above this (and not high) is medium priority
}

// DefaultPolicy returns a Policy with calibrated defaults. The keyword and
// denylist slices come from configuration.
func DefaultPolicy(keywords, denylist []string) Policy {
	return Policy{
		AgeWeight:      45,
		KarmaWeight:    45,
		ActivityWeight: 10,

		AgeSaturationDays:  365,
		KarmaSaturation:    50_000,
		ActivityWindowDays: 90,

		ThrowawayAgeDays: 30,
		ThrowawayKarma:   50,
		ThrowawayCap:     15,

		KeywordWeight:  50,
		DistressWeight: 25,
		AuthorWeight:   25,

		Keywords: keywords,
		Denylist: denylist,

		AuthenticMin:  40,
		HighNeedMin:   60,
		MediumNeedMin: 40,
	}
}

// Validate checks that a Policy is internally consistent.
func (p Policy) Validate() error {
	var errs []string

	weights := map[string]float64{
		"age_weight":      p.AgeWeight,
		"karma_weight":    p.KarmaWeight,
		"activity_weight": p.ActivityWeight,
		"keyword_weight":  p.KeywordWeight,
		"distress_weight": p.DistressWeight,
		"author_weight":   p.AuthorWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if sum := p.AgeWeight + p.KarmaWeight + p.ActivityWeight; sum != 100 {
		errs = append(errs, fmt.Sprintf("authenticity weights should sum to 100, got %.1f", sum))
	}
	if sum := p.KeywordWeight + p.DistressWeight + p.AuthorWeight; sum != 100 {
		errs = append(errs, fmt.Sprintf("need weights should sum to 100, got %.1f", sum))
	}

	if p.AgeSaturationDays <= 0 {
		errs = append(errs, "age_saturation_days must be > 0")
	}
	if p.KarmaSaturation <= 0 {
		errs = append(errs, "karma_saturation must be > 0")
	}
	if p.ActivityWindowDays <= 0 {
		errs = append(errs, "activity_window_days must be > 0")
	}
	if p.AuthenticMin < 0 || p.AuthenticMin > 100 {
		errs = append(errs, "authentic_min must be between 0 and 100")
	}
	if p.HighNeedMin < p.MediumNeedMin {
		errs = append(errs, "high_need_min must be >= medium_need_min")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: policy validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Denied reports whether a username is on the denylist. System placeholders
// like [deleted] are denied regardless of case.
func (p Policy) Denied(username string) bool {
	if username == "" {
		return true
	}
	for _, d := range p.Denylist {
		if strings.EqualFold(username, d) {
			return true
		}
	}
	return false
}
