package fallback

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog holds the templates behind tooltip and spark fallbacks.
type Catalog struct {
	Tooltips map[string]TooltipTemplate `yaml:"tooltips"`
	Sparks   []SparkCategory            `yaml:"sparks"`
}

// TooltipTemplate is one tooltip entry keyed by form field.
type TooltipTemplate struct {
	Title    string   `yaml:"title"`
	Content  string   `yaml:"content"`
	Examples []string `yaml:"examples"`
}

// SparkCategory groups spark templates for businesses matching keywords.
// The category named "default" matches everything.
type SparkCategory struct {
	Category  string          `yaml:"category"`
	Keywords  []string        `yaml:"keywords"`
	Templates []SparkTemplate `yaml:"templates"`
}

// SparkTemplate is one spark with placeholders.
type SparkTemplate struct {
	Title   string `yaml:"title"`
	Tagline string `yaml:"tagline"`
	CTA     string `yaml:"cta"`
}

// ParseCatalog parses and validates a YAML catalog. Tooltip keys are
// normalized; a "default" tooltip and a non-empty "default" spark category
// are required.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "fallback: parse catalog")
	}

	tooltips := make(map[string]TooltipTemplate, len(c.Tooltips))
	for k, v := range c.Tooltips {
		tooltips[normalizeKey(k)] = v
	}
	c.Tooltips = tooltips
	if _, ok := c.Tooltips["default"]; !ok {
		return nil, eris.New("fallback: catalog has no default tooltip")
	}

	var hasDefault bool
	for _, cat := range c.Sparks {
		if len(cat.Templates) < SparksPerSet {
			return nil, eris.Errorf("fallback: spark category %q has %d templates, need %d", cat.Category, len(cat.Templates), SparksPerSet)
		}
		if cat.Category == "default" {
			hasDefault = true
		}
	}
	if !hasDefault {
		return nil, eris.New("fallback: catalog has no default spark category")
	}
	return &c, nil
}

func mustParseCatalog(data []byte) *Catalog {
	c, err := ParseCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// defaultCatalog is parsed once from the embedded file; a broken file fails
// at startup and in tests, never at call time.
var defaultCatalog = mustParseCatalog(catalogYAML)

// titleCase builds a fresh Caser per call; Casers are stateful and must not
// be shared between goroutines.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// category returns the spark category whose keywords appear in businessType.
func (c *Catalog) category(businessType string) SparkCategory {
	bt := strings.ToLower(clean(businessType))
	var def SparkCategory
	for _, cat := range c.Sparks {
		if cat.Category == "default" {
			def = cat
			continue
		}
		if bt != "" && containsWord(bt, cat.Keywords) {
			return cat
		}
	}
	return def
}

func fill(tmpl, business, outcome, name string) string {
	r := strings.NewReplacer(
		"{{business}}", business,
		"{{outcome}}", outcome,
		"{{name}}", name,
	)
	return r.Replace(tmpl)
}
