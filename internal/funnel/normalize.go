package funnel

import (
	"math"
	"strings"

	"github.com/CanAISolutions/canai-intent-build-sub000/internal/fallback"
)

// Remote responses are completed with the local value so callers always
// see every field populated and every score in range.

func normalizeValidation(remote, local fallback.ValidationResult) fallback.ValidationResult {
	remote.TrustScore = clampInt(remote.TrustScore, 0, fallback.MaxTrustScore)
	if blank(remote.Feedback) {
		remote.Feedback = local.Feedback
	}
	return remote
}

func normalizeContradiction(remote, local fallback.ContradictionResult) fallback.ContradictionResult {
	if blank(remote.Message) {
		remote.Message = local.Message
	}
	if blank(remote.SuggestedTone) {
		remote.SuggestedTone = local.SuggestedTone
	}
	return remote
}

func normalizeTooltip(remote, local fallback.Tooltip) fallback.Tooltip {
	if blank(remote.Field) {
		remote.Field = local.Field
	}
	if blank(remote.Title) {
		remote.Title = local.Title
	}
	if blank(remote.Content) {
		remote.Content = local.Content
	}
	if len(remote.Examples) == 0 {
		remote.Examples = local.Examples
	}
	return remote
}

func normalizeSpark(remote, local fallback.Spark) fallback.Spark {
	if blank(remote.Title) {
		remote.Title = local.Title
	}
	if blank(remote.Tagline) {
		remote.Tagline = local.Tagline
	}
	if blank(remote.CTA) {
		remote.CTA = local.CTA
	}
	return remote
}

// normalizeSparkSet keeps exactly SparksPerSet sparks, filling gaps
// position by position from the local set.
func normalizeSparkSet(remote, local fallback.SparkSet) fallback.SparkSet {
	out := fallback.SparkSet{Sparks: make([]fallback.Spark, fallback.SparksPerSet)}
	for i := range out.Sparks {
		var r fallback.Spark
		if i < len(remote.Sparks) {
			r = remote.Sparks[i]
		}
		out.Sparks[i] = normalizeSpark(r, local.Sparks[i])
	}
	return out
}

func normalizeComparison(remote, local fallback.ComparisonResult) fallback.ComparisonResult {
	remote.TrustDelta = clampFloat(remote.TrustDelta, 0, fallback.MaxTrustDelta)
	r := &remote.EmotionalResonance
	r.CanAIScore = clampFloat(r.CanAIScore, 0, 1)
	r.GenericScore = clampFloat(r.GenericScore, 0, 1)
	r.Delta = clampFloat(r.Delta, -1, 1)
	switch strings.ToLower(strings.TrimSpace(remote.UserPreference)) {
	case "canai", "generic", "undecided":
		remote.UserPreference = strings.ToLower(strings.TrimSpace(remote.UserPreference))
	default:
		remote.UserPreference = local.UserPreference
	}
	return remote
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
