package composer

// Content is the caller-supplied prose and structured data for one document.
// Which fields appear in the output depends on the document type's template;
// fields the template does not use are ignored.
type Content struct {
	// Title is the document title; the type label is used when empty
	Title string `json:"title" yaml:"title"`

	// Summary is the overview or executive summary paragraph
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// KeyFindings are rendered as a bulleted list
	KeyFindings []string `json:"key_findings,omitempty" yaml:"key_findings,omitempty"`

	// Opportunity describes the opportunity or investment thesis
	Opportunity string `json:"opportunity,omitempty" yaml:"opportunity,omitempty"`

	// Sections are free-form analysis sections, rendered in order
	Sections []Section `json:"sections,omitempty" yaml:"sections,omitempty"`

	// ExpertPanel holds optional expert opinions
	ExpertPanel []ExpertOpinion `json:"expert_panel,omitempty" yaml:"expert_panel,omitempty"`

	// Scenarios are investment scenarios rendered as a table
	Scenarios []Scenario `json:"scenarios,omitempty" yaml:"scenarios,omitempty"`

	// Currency labels scenario amounts; defaults to USD
	Currency string `json:"currency,omitempty" yaml:"currency,omitempty"`

	// Recommendations are rendered as a bulleted list
	Recommendations []string `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`

	// FinalRecommendation is the closing recommendation paragraph
	FinalRecommendation string `json:"final_recommendation,omitempty" yaml:"final_recommendation,omitempty"`

	// NextSteps are rendered as a numbered list
	NextSteps []string `json:"next_steps,omitempty" yaml:"next_steps,omitempty"`

	// Appendix sections follow the sign-off
	Appendix []Section `json:"appendix,omitempty" yaml:"appendix,omitempty"`
}

// Section is a titled block of body text. Body may be markdown or HTML;
// HTML is converted to markdown before rendering.
type Section struct {
	Heading string `json:"heading" yaml:"heading"`
	Body    string `json:"body" yaml:"body"`
}

// ExpertOpinion is one panel member's view.
type ExpertOpinion struct {
	Name    string `json:"name" yaml:"name"`
	Role    string `json:"role,omitempty" yaml:"role,omitempty"`
	Opinion string `json:"opinion" yaml:"opinion"`
}

// Scenario is one investment scenario.
type Scenario struct {
	Name string `json:"name" yaml:"name"`

	// Investment is the amount in Content.Currency
	Investment float64 `json:"investment" yaml:"investment"`

	// ProjectedReturn is a percentage, e.g. 35 for 35%
	ProjectedReturn float64 `json:"projected_return" yaml:"projected_return"`

	Timeline string `json:"timeline,omitempty" yaml:"timeline,omitempty"`
	Risk     string `json:"risk,omitempty" yaml:"risk,omitempty"`
}

// mapProse applies fn to every caller-supplied prose field. Titles, names
// and numeric data are left alone.
func (c Content) mapProse(fn func(string) string) Content {
	out := c
	out.Summary = fn(c.Summary)
	out.Opportunity = fn(c.Opportunity)
	out.FinalRecommendation = fn(c.FinalRecommendation)
	out.KeyFindings = mapStrings(c.KeyFindings, fn)
	out.Recommendations = mapStrings(c.Recommendations, fn)
	out.NextSteps = mapStrings(c.NextSteps, fn)
	out.Sections = mapSections(c.Sections, fn)
	out.Appendix = mapSections(c.Appendix, fn)
	if c.ExpertPanel != nil {
		out.ExpertPanel = make([]ExpertOpinion, len(c.ExpertPanel))
		for i, e := range c.ExpertPanel {
			e.Opinion = fn(e.Opinion)
			out.ExpertPanel[i] = e
		}
	}
	return out
}

func mapStrings(in []string, fn func(string) string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fn(s)
	}
	return out
}

func mapSections(in []Section, fn func(string) string) []Section {
	if in == nil {
		return nil
	}
	out := make([]Section, len(in))
	for i, s := range in {
		out[i] = Section{Heading: s.Heading, Body: fn(s.Body)}
	}
	return out
}
