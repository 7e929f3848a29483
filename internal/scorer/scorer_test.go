package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovarra/leadgen-cli/internal/model"
)

func testPolicy() Policy {
	return DefaultPolicy(
		[]string{"onlyfans leak", "content stolen", "dmca help"},
		[]string{"[deleted]", "[removed]", "AutoModerator"},
	)
}

func TestDefaultPolicyValidates(t *testing.T) {
	require.NoError(t, testPolicy().Validate())
}

func TestPolicyValidateErrors(t *testing.T) {
	p := testPolicy()
	p.AgeWeight = 70 // authenticity weights no longer sum to 100
	p.KarmaWeight = -5
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "karma_weight must be >= 0")
	assert.Contains(t, err.Error(), "authenticity weights should sum to 100")
}

func TestEvaluateEstablishedDistressedAuthor(t *testing.T) {
	now := time.Now()
	acct := &Account{
		Username:       "creator_one",
		AccountAgeDays: 1100,
		TotalKarma:     12000,
		IsAuthor:       true,
		Comments: []model.Comment{
			{Body: "My content stolen and reposted everywhere, I am desperate", CreatedAt: now.AddDate(0, 0, -2)},
			{Body: "Still need dmca help, this is a nightmare", CreatedAt: now.AddDate(0, 0, -1)},
		},
	}

	ev := testPolicy().Evaluate(acct, now)

	assert.True(t, ev.IsAuthentic)
	assert.Greater(t, ev.AuthenticityScore, 80.0)
	assert.Greater(t, ev.NeedScore, 60.0)
	assert.Equal(t, model.PriorityHigh, ev.Priority)

	// Evaluate annotates the comments in place.
	assert.True(t, acct.Comments[0].ContainsKeywords)
	assert.Negative(t, acct.Comments[0].Sentiment)
}

func TestEvaluateThrowawayCapped(t *testing.T) {
	now := time.Now()
	acct := &Account{
		Username:       "throwaway12345",
		AccountAgeDays: 10,
		TotalKarma:     5,
		IsAuthor:       true,
		Comments: []model.Comment{
			{Body: "please someone help, onlyfans leak", CreatedAt: now.AddDate(0, 0, -1)},
		},
	}

	ev := testPolicy().Evaluate(acct, now)

	assert.Less(t, ev.AuthenticityScore, 20.0)
	assert.False(t, ev.IsAuthentic)
	// Need is scored independently of authenticity.
	assert.Equal(t, model.PriorityHigh, ev.Priority)
}

func TestEvaluateZeroMatchNonAuthor(t *testing.T) {
	now := time.Now()
	acct := &Account{
		Username:       "bystander",
		AccountAgeDays: 800,
		TotalKarma:     30000,
		Comments: []model.Comment{
			{Body: "following this thread", CreatedAt: now.AddDate(0, 0, -5)},
			{Body: "same question here", CreatedAt: now.AddDate(0, 0, -4)},
		},
	}

	ev := testPolicy().Evaluate(acct, now)

	assert.LessOrEqual(t, ev.NeedScore, 30.0)
	assert.Equal(t, model.PriorityLow, ev.Priority)
	assert.True(t, ev.IsAuthentic)
}

func TestEvaluateDistressWithoutKeywordsStaysLow(t *testing.T) {
	now := time.Now()
	acct := &Account{
		Username:       "venting",
		AccountAgeDays: 500,
		TotalKarma:     4000,
		Comments: []model.Comment{
			{Body: "I feel hopeless and terrified, this is awful", CreatedAt: now.AddDate(0, 0, -3)},
		},
	}

	ev := testPolicy().Evaluate(acct, now)

	// Distress alone, with no keyword matches and no authorship, never
	// exceeds the distress weight.
	assert.LessOrEqual(t, ev.NeedScore, 30.0)
	assert.Equal(t, model.PriorityLow, ev.Priority)
}

func TestEvaluateFreshSilentAccount(t *testing.T) {
	now := time.Now()
	acct := &Account{
		Username:       "new_lurker",
		AccountAgeDays: 2,
		TotalKarma:     0,
		Comments: []model.Comment{
			{Body: "interesting", CreatedAt: now.AddDate(0, 0, -1)},
		},
	}

	ev := testPolicy().Evaluate(acct, now)

	assert.Less(t, ev.AuthenticityScore, 20.0)
	assert.LessOrEqual(t, ev.NeedScore, 30.0)
	assert.Equal(t, model.PriorityLow, ev.Priority)
	assert.False(t, ev.IsAuthentic)
}

func TestAuthenticityMonotonic(t *testing.T) {
	now := time.Now()
	p := testPolicy()

	score := func(ageDays float64, karma int) float64 {
		return p.Evaluate(&Account{AccountAgeDays: ageDays, TotalKarma: karma}, now).AuthenticityScore
	}

	// Monotonic in age at fixed karma.
	prev := -1.0
	for _, age := range []float64{5, 20, 31, 90, 180, 365, 1000} {
		s := score(age, 200)
		assert.GreaterOrEqual(t, s, prev, "age %v", age)
		prev = s
	}

	// Monotonic in karma at fixed age.
	prev = -1.0
	for _, karma := range []int{0, 10, 49, 51, 500, 5000, 50000, 200000} {
		s := score(400, karma)
		assert.GreaterOrEqual(t, s, prev, "karma %d", karma)
		prev = s
	}
}

func TestPriorityThresholds(t *testing.T) {
	p := testPolicy()

	assert.Equal(t, model.PriorityHigh, p.priorityFor(60.01))
	assert.Equal(t, model.PriorityMedium, p.priorityFor(60))
	assert.Equal(t, model.PriorityMedium, p.priorityFor(40))
	assert.Equal(t, model.PriorityLow, p.priorityFor(39.99))
}

func TestMatchesKeywords(t *testing.T) {
	p := testPolicy()

	assert.True(t, p.MatchesKeywords("need DMCA Help asap"))
	assert.True(t, p.MatchesKeywords("my ONLYFANS LEAK situation"))
	assert.False(t, p.MatchesKeywords("just saying hi"))
	assert.False(t, p.MatchesKeywords(""))

	// Fullwidth Unicode variants normalize before matching.
	assert.True(t, p.MatchesKeywords("ｄｍｃａ ｈｅｌｐ please"))
}

func TestSentiment(t *testing.T) {
	assert.Zero(t, Sentiment(""))
	assert.Zero(t, Sentiment("the quick brown fox"))
	assert.Negative(t, Sentiment("I am devastated, my photos were stolen"))
	assert.Positive(t, Sentiment("thank you, this was so helpful"))

	// Negation flips the following word.
	assert.Positive(t, Sentiment("not worried anymore"))
	assert.Negative(t, Sentiment("this never worked"))

	// Bounded.
	s := Sentiment("devastated terrified hopeless blackmailed doxxed suicidal")
	assert.GreaterOrEqual(t, s, -1.0)
	assert.Less(t, s, 0.0)
}

func TestDenied(t *testing.T) {
	p := testPolicy()

	assert.True(t, p.Denied("[deleted]"))
	assert.True(t, p.Denied("automoderator"))
	assert.True(t, p.Denied(""))
	assert.False(t, p.Denied("real_user"))
}
