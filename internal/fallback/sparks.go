package fallback

import "strings"

// SparksPerSet is the number of sparks offered at once.
const SparksPerSet = 3

const defaultOutcome = "grow with confidence"

// SparkRequest carries the inputs for initial spark generation.
type SparkRequest struct {
	BusinessName string `json:"businessName,omitempty"`
	BusinessType string `json:"businessType"`
	Tone         string `json:"tone"`
	Outcome      string `json:"outcome"`
}

// Spark is one short title/tagline/call-to-action concept.
type Spark struct {
	Title   string `json:"title"`
	Tagline string `json:"tagline"`
	CTA     string `json:"cta"`
}

// SparkSet mirrors the generate-sparks endpoint response.
type SparkSet struct {
	Sparks []Spark `json:"sparks"`
}

// RegenerateRequest asks for one replacement spark.
type RegenerateRequest struct {
	SparkRequest
	Attempt  int      `json:"attempt"`
	Feedback string   `json:"feedback,omitempty"`
	Previous []string `json:"previous,omitempty"` // titles already shown
}

// Sparks is the local substitute for the generate-sparks endpoint. The
// category is chosen by business-type keywords and the starting template by
// a stable hash of the request.
func Sparks(req SparkRequest) SparkSet {
	return defaultCatalog.sparks(req)
}

// RegenerateSpark is the local substitute for the regenerate-spark endpoint.
// It walks past the initial set and skips titles in Previous when possible.
func RegenerateSpark(req RegenerateRequest) Spark {
	return defaultCatalog.regenerate(req)
}

func (c *Catalog) sparks(req SparkRequest) SparkSet {
	cat := c.category(req.BusinessType)
	n := len(cat.Templates)
	start := stableIndex(n, req.BusinessType, req.Tone, req.Outcome)

	set := SparkSet{Sparks: make([]Spark, 0, SparksPerSet)}
	for i := 0; i < SparksPerSet; i++ {
		set.Sparks = append(set.Sparks, render(cat.Templates[(start+i)%n], req))
	}
	return set
}

func (c *Catalog) regenerate(req RegenerateRequest) Spark {
	cat := c.category(req.BusinessType)
	n := len(cat.Templates)
	start := stableIndex(n, req.BusinessType, req.Tone, req.Outcome)

	attempt := req.Attempt
	if attempt < 0 {
		attempt = 0
	}
	seen := make(map[string]bool, len(req.Previous))
	for _, p := range req.Previous {
		seen[strings.ToLower(clean(p))] = true
	}

	first := (start + SparksPerSet + attempt%n) % n
	for i := 0; i < n; i++ {
		s := render(cat.Templates[(first+i)%n], req.SparkRequest)
		if !seen[strings.ToLower(s.Title)] {
			return s
		}
	}
	return render(cat.Templates[first], req.SparkRequest)
}

func render(t SparkTemplate, req SparkRequest) Spark {
	business := businessLabel(req.BusinessName, req.BusinessType)
	outcome := strings.ToLower(clean(req.Outcome))
	if outcome == "" {
		outcome = defaultOutcome
	}
	name := clean(req.BusinessName)
	return Spark{
		Title:   titleCase(fill(t.Title, business, outcome, name)),
		Tagline: fill(t.Tagline, business, outcome, name),
		CTA:     fill(t.CTA, business, outcome, name),
	}
}
