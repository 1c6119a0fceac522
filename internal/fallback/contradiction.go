package fallback

import (
	"fmt"
	"strings"
)

// ContradictionResult mirrors the detect-contradiction endpoint response.
type ContradictionResult struct {
	HasContradiction bool   `json:"hasContradiction"`
	Message          string `json:"message"`
	SuggestedTone    string `json:"suggestedTone"`
}

// DefaultTone is suggested when no tone was chosen.
const DefaultTone = "professional"

type toneRule struct {
	tones    []string
	outcomes []string
	suggest  string
	reason   string
}

// toneRules pairs tones with outcome keywords they tend to undermine.
var toneRules = []toneRule{
	{
		tones:    []string{"playful", "casual", "humorous", "funny", "quirky", "fun"},
		outcomes: []string{"funding", "investor", "investment", "loan", "grant", "bank", "capital", "financing"},
		suggest:  "professional",
		reason:   "funders and lenders usually respond to a credible, confident voice",
	},
	{
		tones:    []string{"formal", "corporate", "technical"},
		outcomes: []string{"viral", "social", "community", "followers", "engagement", "buzz"},
		suggest:  "inspirational",
		reason:   "community growth tends to come from warm, energetic messaging",
	},
	{
		tones:    []string{"bold", "aggressive", "edgy"},
		outcomes: []string{"trust", "reassure", "credibility", "reputation", "care"},
		suggest:  "warm",
		reason:   "trust is built faster with a reassuring, steady voice",
	},
}

// Contradiction is the local substitute for the detect-contradiction
// endpoint. It flags tone choices that work against the desired outcome.
func Contradiction(in BusinessInput) ContradictionResult {
	tone := strings.ToLower(clean(in.PreferredTone))
	outcome := strings.ToLower(clean(in.DesiredOutcome))

	for _, rule := range toneRules {
		if !containsWord(tone, rule.tones) || !containsAny(outcome, rule.outcomes) {
			continue
		}
		return ContradictionResult{
			HasContradiction: true,
			Message: fmt.Sprintf(
				"A %s tone may work against your goal to %s; %s. Consider a %s tone instead.",
				tone, outcome, rule.reason, rule.suggest,
			),
			SuggestedTone: rule.suggest,
		}
	}

	suggested := tone
	if suggested == "" {
		suggested = DefaultTone
	}
	return ContradictionResult{
		HasContradiction: false,
		Message:          "Your tone and goals are aligned.",
		SuggestedTone:    suggested,
	}
}

func containsWord(s string, candidates []string) bool {
	for _, w := range words(s) {
		for _, c := range candidates {
			if w == c {
				return true
			}
		}
	}
	return false
}
