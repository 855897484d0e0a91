package composer

import (
	"github.com/c360studio/semreport/document"
)

// SectionKind identifies which part of Content a template section renders.
type SectionKind string

const (
	SectionSummary             SectionKind = "summary"
	SectionKeyFindings         SectionKind = "key_findings"
	SectionOpportunity         SectionKind = "opportunity"
	SectionScoring             SectionKind = "scoring"
	SectionAnalysis            SectionKind = "analysis"
	SectionExpertPanel         SectionKind = "expert_panel"
	SectionScenarios           SectionKind = "scenarios"
	SectionRecommendations     SectionKind = "recommendations"
	SectionFinalRecommendation SectionKind = "final_recommendation"
	SectionNextSteps           SectionKind = "next_steps"
	SectionSignOff             SectionKind = "sign_off"
	SectionAppendix            SectionKind = "appendix"
)

// SectionSpec is one heading in a template.
type SectionSpec struct {
	Kind    SectionKind
	Heading string

	// Required sections are checked by the structure validator. Optional
	// sections are omitted entirely when their content is empty.
	Required bool
}

// Template is the ordered section layout for one document type.
type Template struct {
	Type     document.Type
	Sections []SectionSpec
}

// The scoring section is never Required: it renders only when a matrix is
// supplied.
var templates = map[document.Type]Template{
	document.TypeExecutiveSummary: {Sections: []SectionSpec{
		{Kind: SectionSummary, Heading: "Overview", Required: true},
		{Kind: SectionKeyFindings, Heading: "Key Findings", Required: true},
		{Kind: SectionScoring, Heading: "Scoring Matrix"},
		{Kind: SectionRecommendations, Heading: "Recommendations", Required: true},
		{Kind: SectionNextSteps, Heading: "Next Steps", Required: true},
		{Kind: SectionSignOff, Heading: "Sign-off", Required: true},
	}},
	document.TypeInnovationBrief: {Sections: []SectionSpec{
		{Kind: SectionSummary, Heading: "Executive Summary", Required: true},
		{Kind: SectionOpportunity, Heading: "Opportunity Overview", Required: true},
		{Kind: SectionScoring, Heading: "Strategic Assessment"},
		{Kind: SectionExpertPanel, Heading: "Expert Panel"},
		{Kind: SectionScenarios, Heading: "Investment Scenarios", Required: true},
		{Kind: SectionFinalRecommendation, Heading: "Final Recommendation", Required: true},
		{Kind: SectionSignOff, Heading: "Sign-off", Required: true},
		{Kind: SectionAppendix, Heading: "Appendix"},
	}},
	document.TypeFullReport: {Sections: []SectionSpec{
		{Kind: SectionSummary, Heading: "Executive Summary", Required: true},
		{Kind: SectionKeyFindings, Heading: "Key Findings", Required: true},
		{Kind: SectionAnalysis, Heading: "Detailed Analysis", Required: true},
		{Kind: SectionScoring, Heading: "Scoring Matrix"},
		{Kind: SectionExpertPanel, Heading: "Expert Panel"},
		{Kind: SectionRecommendations, Heading: "Recommendations", Required: true},
		{Kind: SectionNextSteps, Heading: "Next Steps", Required: true},
		{Kind: SectionSignOff, Heading: "Sign-off", Required: true},
		{Kind: SectionAppendix, Heading: "Appendix"},
	}},
	document.TypeInvestmentAnalysis: {Sections: []SectionSpec{
		{Kind: SectionSummary, Heading: "Executive Summary", Required: true},
		{Kind: SectionOpportunity, Heading: "Investment Thesis", Required: true},
		{Kind: SectionScoring, Heading: "Investment Scoring"},
		{Kind: SectionScenarios, Heading: "Investment Scenarios", Required: true},
		{Kind: SectionAnalysis, Heading: "Risk Analysis"},
		{Kind: SectionFinalRecommendation, Heading: "Final Recommendation", Required: true},
		{Kind: SectionSignOff, Heading: "Sign-off", Required: true},
		{Kind: SectionAppendix, Heading: "Appendix"},
	}},
	document.TypeStrategicAssessment: {Sections: []SectionSpec{
		{Kind: SectionSummary, Heading: "Overview", Required: true},
		{Kind: SectionKeyFindings, Heading: "Key Findings", Required: true},
		{Kind: SectionScoring, Heading: "Strategic Assessment"},
		{Kind: SectionAnalysis, Heading: "Analysis"},
		{Kind: SectionRecommendations, Heading: "Recommendations", Required: true},
		{Kind: SectionNextSteps, Heading: "Next Steps", Required: true},
		{Kind: SectionSignOff, Heading: "Sign-off", Required: true},
	}},
	document.TypeProjectGenesis: {Sections: []SectionSpec{
		{Kind: SectionSummary, Heading: "Vision", Required: true},
		{Kind: SectionOpportunity, Heading: "Opportunity Overview", Required: true},
		{Kind: SectionKeyFindings, Heading: "Founding Assumptions", Required: true},
		{Kind: SectionScoring, Heading: "Viability Scoring"},
		{Kind: SectionNextSteps, Heading: "Launch Plan", Required: true},
		{Kind: SectionSignOff, Heading: "Sign-off", Required: true},
	}},
	document.TypeDailyBrief: {Sections: []SectionSpec{
		{Kind: SectionSummary, Heading: "Summary", Required: true},
		{Kind: SectionKeyFindings, Heading: "Priorities", Required: true},
		{Kind: SectionAnalysis, Heading: "Updates"},
		{Kind: SectionNextSteps, Heading: "Action Items", Required: true},
		{Kind: SectionSignOff, Heading: "Sign-off", Required: true},
	}},
	document.TypeEveningReview: {Sections: []SectionSpec{
		{Kind: SectionSummary, Heading: "Summary", Required: true},
		{Kind: SectionKeyFindings, Heading: "Accomplishments", Required: true},
		{Kind: SectionScoring, Heading: "Performance Scoring"},
		{Kind: SectionAnalysis, Heading: "Reflections"},
		{Kind: SectionNextSteps, Heading: "Tomorrow's Focus", Required: true},
		{Kind: SectionSignOff, Heading: "Sign-off", Required: true},
	}},
}

// TemplateFor returns a copy of the template for a document type.
func TemplateFor(t document.Type) (Template, bool) {
	tmpl, ok := templates[t]
	if !ok {
		return Template{}, false
	}
	tmpl.Type = t
	tmpl.Sections = append([]SectionSpec(nil), tmpl.Sections...)
	return tmpl, true
}
