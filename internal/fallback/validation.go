package fallback

// Validation scoring points. The total is capped at MaxTrustScore.
const (
	PointsBusinessType   = 20
	PointsChallenge10    = 15
	PointsChallenge20    = 15
	PointsPreferredTone  = 20
	PointsDesiredOutcome = 20

	MaxTrustScore = 100
	// ValidThreshold is the minimum trust score for an input to pass.
	ValidThreshold = 50
)

// ValidationResult mirrors the validate-input endpoint response.
type ValidationResult struct {
	Valid      bool   `json:"valid"`
	Feedback   string `json:"feedback"`
	TrustScore int    `json:"trustScore"`
}

// TrustScore scores input completeness on 0–100:
// business type present +20, challenge of at least 10 characters +15 and of
// at least 20 characters another +15, tone present +20, outcome present +20.
func TrustScore(in BusinessInput) int {
	score := 0
	if clean(in.BusinessType) != "" {
		score += PointsBusinessType
	}
	if n := runeLen(in.PrimaryChallenge); n >= 10 {
		score += PointsChallenge10
		if n >= 20 {
			score += PointsChallenge20
		}
	}
	if clean(in.PreferredTone) != "" {
		score += PointsPreferredTone
	}
	if clean(in.DesiredOutcome) != "" {
		score += PointsDesiredOutcome
	}
	if score > MaxTrustScore {
		score = MaxTrustScore
	}
	return score
}

// Validation is the local substitute for the validate-input endpoint.
func Validation(in BusinessInput) ValidationResult {
	score := TrustScore(in)
	return ValidationResult{
		Valid:      score >= ValidThreshold,
		Feedback:   validationFeedback(in, score),
		TrustScore: score,
	}
}

func validationFeedback(in BusinessInput, score int) string {
	switch {
	case clean(in.BusinessType) == "":
		return "Tell us what type of business you run so we can tailor your plan."
	case runeLen(in.PrimaryChallenge) < 10:
		return "Describe your primary challenge in a bit more detail (at least 10 characters)."
	case clean(in.DesiredOutcome) == "":
		return "Share the outcome you want to achieve so we can aim your plan at it."
	case clean(in.PreferredTone) == "":
		return "Pick a preferred tone so your deliverable sounds like you."
	case runeLen(in.PrimaryChallenge) < 20:
		return "Add a little more detail about your challenge for a more personal result."
	case score >= 80:
		return "Great detail! Your inputs give us a clear picture of your business."
	default:
		return "Looks good. More specifics will make your plan even sharper."
	}
}
