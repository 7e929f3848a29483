package scorer

import (
	"math"
	"strings"
	"unicode"
)

// valence maps sentiment-bearing words to scores on a -5..5 scale, AFINN
// style. The list is tuned for the distress vocabulary seen in creator
// communities discussing leaks and takedowns, not general prose.
var valence = map[string]float64{
	// Distress and violation.
	"stolen":      -4,
	"leaked":      -4,
	"leak":        -3,
	"violated":    -4,
	"violation":   -3,
	"harassed":    -4,
	"harassment":  -4,
	"stalked":     -4,
	"blackmail":   -5,
	"blackmailed": -5,
	"extorted":    -5,
	"doxxed":      -5,
	"doxed":       -5,
	"exposed":     -3,
	"reposted":    -2,
	"pirated":     -3,
	"scammed":     -4,
	"scam":        -3,
	"fraud":       -4,

	// Emotional state.
	"desperate":   -4,
	"devastated":  -5,
	"terrified":   -5,
	"scared":      -3,
	"afraid":      -3,
	"panicking":   -4,
	"panic":       -3,
	"crying":      -3,
	"helpless":    -4,
	"hopeless":    -4,
	"humiliated":  -4,
	"humiliating": -4,
	"ashamed":     -3,
	"anxious":     -3,
	"anxiety":     -3,
	"depressed":   -4,
	"suicidal":    -5,
	"ruined":      -4,
	"nightmare":   -4,
	"horrible":    -3,
	"terrible":    -3,
	"awful":       -3,
	"worst":       -3,
	"hate":        -3,
	"angry":       -3,
	"furious":     -4,
	"upset":       -2,
	"worried":     -2,
	"stressed":    -2,
	"frustrated":  -2,
	"annoyed":     -1,
	"ignored":     -2,
	"useless":     -2,

	// Positive.
	"thanks":    2,
	"thank":     2,
	"grateful":  3,
	"helpful":   2,
	"helped":    2,
	"great":     3,
	"good":      2,
	"amazing":   4,
	"awesome":   4,
	"love":      3,
	"happy":     3,
	"relieved":  3,
	"relief":    2,
	"fixed":     2,
	"resolved":  2,
	"recommend": 2,
	"worked":    2,
	"success":   3,
	"win":       2,
	"won":       3,
}

// negators flip the sign of the word that follows them.
var negators = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"nothing": true,
	"cant":    true,
	"can't":   true,
	"wont":    true,
	"won't":   true,
	"didnt":   true,
	"didn't":  true,
	"isnt":    true,
	"isn't":   true,
	"without": true,
}

// Sentiment scores a text on a -1..1 scale. Zero means neutral or no
// sentiment-bearing words found.
func Sentiment(text string) float64 {
	if text == "" {
		return 0
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	var sum float64
	var hits int
	negate := false
	for _, w := range words {
		if negators[w] {
			negate = true
			continue
		}
		if v, ok := valence[w]; ok {
			if negate {
				v = -v
			}
			sum += v
			hits++
		}
		negate = false
	}
	if hits == 0 {
		return 0
	}

	// Mean valence normalized to -1..1, damped so a single strong word in
	// a short comment does not pin the score to an extreme.
	mean := sum / (5 * float64(hits))
	score := mean * float64(hits) / (float64(hits) + 1)
	return math.Max(-1, math.Min(score, 1))
}
