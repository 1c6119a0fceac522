package fallback

import "strings"

// Score ranges.
const (
	MaxTrustDelta = 5.0
	// ResonanceTarget is the personalized-output resonance considered
	// a pass.
	ResonanceTarget = 0.7
)

// ComparisonRequest carries the two SparkSplit outputs being compared.
type ComparisonRequest struct {
	CanAIOutput    string `json:"canaiOutput"`
	GenericOutput  string `json:"genericOutput"`
	BusinessName   string `json:"businessName,omitempty"`
	BusinessType   string `json:"businessType,omitempty"`
	UserPreference string `json:"userPreference,omitempty"`
}

// Resonance holds emotional-resonance scores on 0–1.
type Resonance struct {
	CanAIScore   float64 `json:"canaiScore"`
	GenericScore float64 `json:"genericScore"`
	Delta        float64 `json:"delta"`
	IsValid      bool    `json:"isValid"`
}

// ComparisonResult mirrors the spark-split endpoint response.
type ComparisonResult struct {
	TrustDelta         float64   `json:"trustDelta"`
	EmotionalResonance Resonance `json:"emotionalResonance"`
	UserPreference     string    `json:"userPreference"`
}

// emotionWords are the keywords counted toward resonance.
var emotionWords = map[string]bool{
	"passion": true, "passionate": true, "dream": true, "dreams": true,
	"love": true, "proud": true, "trust": true, "community": true,
	"heart": true, "together": true, "inspire": true, "inspired": true,
	"believe": true, "grow": true, "journey": true, "vision": true,
	"care": true, "hope": true, "joy": true, "family": true,
	"story": true, "mission": true, "transform": true, "warm": true,
}

// Comparison is the local substitute for the spark-split endpoint.
//
// Resonance per text is 0.3 base, +0.04 per emotion keyword (at most 10),
// +0.1 per personalization hit (business name, business type), +0.1 at 50
// words and another +0.1 at 150 words, clamped to 0–1. TrustDelta is
// 2.5 + 5 * (canai - generic), clamped to 0–5 and rounded to one decimal.
func Comparison(req ComparisonRequest) ComparisonResult {
	canai := resonance(req.CanAIOutput, req.BusinessName, req.BusinessType)
	generic := resonance(req.GenericOutput, req.BusinessName, req.BusinessType)

	return ComparisonResult{
		TrustDelta: round(clamp(2.5+5*(canai-generic), 0, MaxTrustDelta), 1),
		EmotionalResonance: Resonance{
			CanAIScore:   canai,
			GenericScore: generic,
			Delta:        round(canai-generic, 2),
			IsValid:      canai >= ResonanceTarget,
		},
		UserPreference: normalizePreference(req.UserPreference),
	}
}

func resonance(text, name, businessType string) float64 {
	ws := words(text)
	if len(ws) == 0 {
		return 0
	}

	emotional := 0
	for _, w := range ws {
		if emotionWords[w] {
			emotional++
		}
	}
	if emotional > 10 {
		emotional = 10
	}

	lower := strings.ToLower(text)
	hits := 0
	if n := strings.ToLower(clean(name)); n != "" && strings.Contains(lower, n) {
		hits++
	}
	if bt := strings.ToLower(clean(businessType)); bt != "" && strings.Contains(lower, bt) {
		hits++
	}

	score := 0.3 + 0.04*float64(emotional) + 0.1*float64(hits)
	if len(ws) >= 50 {
		score += 0.1
	}
	if len(ws) >= 150 {
		score += 0.1
	}
	return round(clamp(score, 0, 1), 2)
}

func normalizePreference(p string) string {
	switch strings.ToLower(clean(p)) {
	case "canai", "personalized", "a":
		return "canai"
	case "generic", "b":
		return "generic"
	default:
		return "undecided"
	}
}
