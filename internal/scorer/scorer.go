package scorer

import (
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/ovarra/leadgen-cli/internal/model"
)

// Account holds the facts about a candidate that scoring consumes. Comments
// are the account's recent comments; Evaluate annotates them in place with
// keyword and sentiment analysis.
type Account struct {
	Username       string
	AccountAgeDays float64
	TotalKarma     int
	IsAuthor       bool
	Comments       []model.Comment
}

// Evaluation is the scoring result for a single account.
type Evaluation struct {
	AuthenticityScore float64            `json:"authenticity_score"`
	NeedScore         float64            `json:"need_score"`
	Priority          model.Priority     `json:"priority"`
	IsAuthentic       bool               `json:"is_authentic"`
	IsActive          bool               `json:"is_active"`
	Components        map[string]float64 `json:"components,omitempty"`
}

// Evaluate scores an account against the policy. Both scores land on a
// 0-100 scale; priority derives from the need score alone.
func (p Policy) Evaluate(acct *Account, now time.Time) Evaluation {
	for i := range acct.Comments {
		acct.Comments[i].ContainsKeywords = p.MatchesKeywords(acct.Comments[i].Body)
		acct.Comments[i].Sentiment = Sentiment(acct.Comments[i].Body)
	}

	components := map[string]float64{
		"age":      scoreAge(acct.AccountAgeDays, p.AgeSaturationDays),
		"karma":    scoreKarma(acct.TotalKarma, p.KarmaSaturation),
		"activity": scoreActivity(acct.Comments, now, p.ActivityWindowDays),
		"keywords": keywordFraction(acct.Comments),
		"distress": distressLevel(acct.Comments),
	}

	authenticity := components["age"]*p.AgeWeight +
		components["karma"]*p.KarmaWeight +
		components["activity"]*p.ActivityWeight

	// Young accounts with almost no karma look like throwaways created to
	// post about the leak. They still matter as leads but must not pass
	// the authenticity bar.
	if acct.AccountAgeDays < float64(p.ThrowawayAgeDays) && acct.TotalKarma < p.ThrowawayKarma {
		authenticity = math.Min(authenticity, p.ThrowawayCap)
	}

	need := components["keywords"]*p.KeywordWeight +
		components["distress"]*p.DistressWeight
	if acct.IsAuthor {
		need += p.AuthorWeight
	}

	authenticity = clampScore(authenticity)
	need = clampScore(need)

	ev := Evaluation{
		AuthenticityScore: math.Round(authenticity*100) / 100,
		NeedScore:         math.Round(need*100) / 100,
		Priority:          p.priorityFor(need),
		IsAuthentic:       authenticity >= p.AuthenticMin,
		IsActive:          components["activity"] > 0,
		Components:        components,
	}

	zap.L().Debug("scorer: evaluated account",
		zap.String("username", acct.Username),
		zap.Float64("authenticity", ev.AuthenticityScore),
		zap.Float64("need", ev.NeedScore),
		zap.String("priority", string(ev.Priority)),
	)

	return ev
}

// priorityFor maps a need score to an outreach priority.
func (p Policy) priorityFor(need float64) model.Priority {
	switch {
	case need > p.HighNeedMin:
		return model.PriorityHigh
	case need >= p.MediumNeedMin:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// MatchesKeywords reports whether any policy keyword appears in the text.
// Both sides are Unicode-normalized and lowercased before comparison.
func (p Policy) MatchesKeywords(text string) bool {
	if text == "" || len(p.Keywords) == 0 {
		return false
	}
	haystack := normalize(text)
	for _, kw := range p.Keywords {
		if strings.Contains(haystack, normalize(kw)) {
			return true
		}
	}
	return false
}

// normalize folds a string to NFKC form and lowercases it so that styled
// Unicode variants (fullwidth, compatibility ligatures) still match.
func normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// scoreAge returns 0.0-1.0, linear in account age up to the saturation point.
func scoreAge(ageDays float64, saturationDays int) float64 {
	if ageDays <= 0 {
		return 0
	}
	return math.Min(ageDays/float64(saturationDays), 1.0)
}

// scoreKarma returns 0.0-1.0 on a log scale so that the difference between
// 0 and 1k karma matters far more than the difference between 40k and 50k.
func scoreKarma(karma, saturation int) float64 {
	if karma <= 0 {
		return 0
	}
	return math.Min(math.Log1p(float64(karma))/math.Log1p(float64(saturation)), 1.0)
}

// scoreActivity returns 1.0 when the account commented within the activity
// window, 0.0 otherwise.
func scoreActivity(comments []model.Comment, now time.Time, windowDays int) float64 {
	cutoff := now.AddDate(0, 0, -windowDays)
	for i := range comments {
		if comments[i].CreatedAt.After(cutoff) {
			return 1.0
		}
	}
	return 0
}

// keywordFraction returns the fraction of comments flagged as containing
// policy keywords. Accounts with no comments score 0.
func keywordFraction(comments []model.Comment) float64 {
	if len(comments) == 0 {
		return 0
	}
	var hits int
	for i := range comments {
		if comments[i].ContainsKeywords {
			hits++
		}
	}
	return float64(hits) / float64(len(comments))
}

// distressLevel returns 0.0-1.0 from the mean negative sentiment across the
// account's comments. Positive sentiment contributes nothing.
func distressLevel(comments []model.Comment) float64 {
	if len(comments) == 0 {
		return 0
	}
	var total float64
	for i := range comments {
		if comments[i].Sentiment < 0 {
			total += -comments[i].Sentiment
		}
	}
	return math.Min(total/float64(len(comments)), 1.0)
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(v, 100))
}
