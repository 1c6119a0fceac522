package fallback

// TooltipRequest asks for help text for one form field.
type TooltipRequest struct {
	Field        string `json:"field"`
	BusinessType string `json:"businessType,omitempty"`
	BusinessName string `json:"businessName,omitempty"`
}

// Tooltip mirrors the generate-tooltip endpoint response.
type Tooltip struct {
	Field    string   `json:"field"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Examples []string `json:"examples"`
}

// GenerateTooltip is the local substitute for the generate-tooltip endpoint.
// Unknown fields get the default template.
func GenerateTooltip(req TooltipRequest) Tooltip {
	return defaultCatalog.tooltip(req)
}

func (c *Catalog) tooltip(req TooltipRequest) Tooltip {
	tmpl, ok := c.Tooltips[normalizeKey(req.Field)]
	if !ok {
		tmpl = c.Tooltips["default"]
	}

	business := businessLabel(req.BusinessName, req.BusinessType)
	examples := make([]string, 0, len(tmpl.Examples))
	for _, ex := range tmpl.Examples {
		examples = append(examples, fill(ex, business, "", clean(req.BusinessName)))
	}

	field := clean(req.Field)
	if field == "" {
		field = "general"
	}
	return Tooltip{
		Field:    field,
		Title:    tmpl.Title,
		Content:  fill(tmpl.Content, business, "", clean(req.BusinessName)),
		Examples: examples,
	}
}

// businessLabel picks the most specific way to refer to the business.
func businessLabel(name, businessType string) string {
	if n := clean(name); n != "" {
		return n
	}
	if bt := clean(businessType); bt != "" {
		return "your " + bt + " business"
	}
	return "your business"
}
