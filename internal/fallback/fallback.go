// Package fallback synthesizes locally computed substitutes for remote
// integration results. Every function is pure and deterministic, never
// panics, and returns a value with all fields populated so callers can
// treat remote and fallback results the same way.
package fallback

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// BusinessInput is the business-details form as submitted by the funnel.
type BusinessInput struct {
	BusinessName     string `json:"businessName,omitempty"`
	BusinessType     string `json:"businessType"`
	PrimaryChallenge string `json:"primaryChallenge"`
	PreferredTone    string `json:"preferredTone"`
	DesiredOutcome   string `json:"desiredOutcome"`
	TargetAudience   string `json:"targetAudience,omitempty"`
	Location         string `json:"location,omitempty"`
}

func clean(s string) string {
	return strings.TrimSpace(s)
}

func runeLen(s string) int {
	return len([]rune(clean(s)))
}

// normalizeKey lowercases s and drops everything but letters and digits, so
// "primary_challenge", "Primary Challenge" and "primaryChallenge" match.
func normalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// words splits s into lowercase words with surrounding punctuation removed.
func words(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// stableIndex maps parts to an index in [0, n) using FNV-1a. It replaces
// random template choice so results are reproducible.
func stableIndex(n int, parts ...string) int {
	if n <= 0 {
		return 0
	}
	h := fnv.New32a()
	for _, p := range parts {
		_, _ = h.Write([]byte(normalizeKey(p)))
		_, _ = h.Write([]byte{0})
	}
	return int(h.Sum32() % uint32(n))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
