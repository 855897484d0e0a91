package composer

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/c360studio/semreport/brand"
	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/scoring"
)

var fixedTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

type fixedIDs struct{ id string }

func (f fixedIDs) NewID(document.Type) string { return f.id }

func testMatrix() []scoring.Entry {
	return []scoring.Entry{
		{Dimension: "Market", Score: 90, Weight: 50, Assessment: "Strong demand in core segments"},
		{Dimension: "Execution", Score: 60, Weight: 30, Assessment: "Hiring behind plan"},
		{Dimension: "Finance", Score: 40, Weight: 20, Assessment: "Runway under 12 months"},
	}
}

func executiveContent() Content {
	return Content{
		Title:   "Q1 Venture Review",
		Summary: "Northwind is on track to break-even in the third quarter. The revolutionary pricing model is working.",
		KeyFindings: []string{
			"Revenue grew 18% quarter-over-quarter.",
			"Customer churn fell to 2.1%.",
		},
		Recommendations: []string{
			"Extend runway with a bridge round.",
			"Prioritise two senior engineering hires.",
		},
		NextSteps: []string{
			"Board review on March 15.",
			"Publish revised hiring plan.",
		},
	}
}

func newTestComposer(opts ...Option) *Composer {
	base := []Option{
		WithClock(func() time.Time { return fixedTime }),
		WithIDSource(fixedIDs{id: "BIZ-ES-TEST-0001"}),
	}
	return New(append(base, opts...)...)
}

func TestCompose_ExecutiveSummaryGolden(t *testing.T) {
	c := newTestComposer(WithProseFormatter(brand.FormatForBrand))

	doc, err := c.Compose(document.TypeExecutiveSummary, executiveContent(), testMatrix(), document.ClassificationConfidential)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "executive_summary", []byte(doc.Text))
}

func TestCompose_ExecutiveSummaryScoring(t *testing.T) {
	doc, err := newTestComposer().Compose(document.TypeExecutiveSummary, executiveContent(), testMatrix(), document.ClassificationInternal)
	require.NoError(t, err)

	require.NotNil(t, doc.Scoring)
	assert.InDelta(t, 71.0, doc.Scoring.Overall, 1e-9)
	assert.Equal(t, scoring.RatingGood, doc.Scoring.Rating.Rating)
	assert.Contains(t, doc.Text, "| **Overall** | **71** | **100%** | **71.0** | **Good** |")

	assert.Equal(t, "BIZ-ES-TEST-0001", doc.Metadata.ID)
	assert.Equal(t, "1.0", doc.Metadata.Version)
	assert.Equal(t, document.StatusDraft, doc.Metadata.Status)
	assert.Equal(t, fixedTime, doc.Metadata.CreatedAt)
	assert.True(t, doc.Structure.Valid, doc.Structure.MissingSections)
}

func TestCompose_SectionOrder(t *testing.T) {
	doc, err := newTestComposer().Compose(document.TypeExecutiveSummary, executiveContent(), testMatrix(), document.ClassificationInternal)
	require.NoError(t, err)

	headings := []string{"## Overview", "## Key Findings", "## Scoring Matrix", "## Recommendations", "## Next Steps", "## Sign-off"}
	last := -1
	for _, h := range headings {
		idx := strings.Index(doc.Text, h)
		require.NotEqual(t, -1, idx, "missing %s", h)
		assert.Greater(t, idx, last, "%s out of order", h)
		last = idx
	}
}

func TestCompose_NilMatrixOmitsScoring(t *testing.T) {
	doc, err := newTestComposer().Compose(document.TypeExecutiveSummary, executiveContent(), nil, document.ClassificationPublic)
	require.NoError(t, err)

	assert.Nil(t, doc.Scoring)
	assert.NotContains(t, doc.Text, "Scoring Matrix")
	assert.NotContains(t, doc.Text, "| Dimension |")
	assert.True(t, doc.Structure.Valid)
}

func TestCompose_Errors(t *testing.T) {
	c := newTestComposer()
	tests := []struct {
		name   string
		typ    document.Type
		class  document.Classification
		matrix []scoring.Entry
		want   error
	}{
		{name: "empty matrix", typ: document.TypeExecutiveSummary, class: document.ClassificationPublic, matrix: []scoring.Entry{}, want: scoring.ErrEmptyScoringMatrix},
		{name: "zero weights", typ: document.TypeExecutiveSummary, class: document.ClassificationPublic, matrix: []scoring.Entry{{Dimension: "a", Score: 50}}, want: scoring.ErrDegenerateWeights},
		{name: "score out of range", typ: document.TypeExecutiveSummary, class: document.ClassificationPublic, matrix: []scoring.Entry{{Dimension: "a", Score: 150, Weight: 100}}, want: scoring.ErrScoreOutOfRange},
		{name: "unknown type", typ: document.Type("memo"), class: document.ClassificationPublic},
		{name: "unknown classification", typ: document.TypeExecutiveSummary, class: document.Classification("secret")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := c.Compose(tt.typ, executiveContent(), tt.matrix, tt.class)
			require.Error(t, err)
			assert.Nil(t, doc)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestCompose_InnovationBrief(t *testing.T) {
	content := Content{
		Title:       "Solar Microgrids",
		Summary:     "Community microgrids are a viable adjacent market.",
		Opportunity: "Rural cooperatives lack affordable storage.",
		ExpertPanel: []ExpertOpinion{
			{Name: "Dr. Lena Ortiz", Role: "Energy Economist", Opinion: "Storage costs keep falling."},
			{Name: "Sam Okafor", Opinion: "Permitting is the bottleneck."},
		},
		Scenarios: []Scenario{
			{Name: "Pilot", Investment: 250000, ProjectedReturn: 12, Timeline: "12 months", Risk: "Low"},
			{Name: "Regional", Investment: 1250000, ProjectedReturn: 27.5, Timeline: "24 months", Risk: "Medium"},
		},
		FinalRecommendation: "Proceed with the pilot.",
		Appendix: []Section{
			{Heading: "data_sources", Body: "Utility filings 2024-2025."},
		},
	}

	doc, err := newTestComposer().Compose(document.TypeInnovationBrief, content, testMatrix(), document.ClassificationRestricted)
	require.NoError(t, err)

	headings := []string{
		"## Executive Summary", "## Opportunity Overview", "## Strategic Assessment",
		"## Expert Panel", "## Investment Scenarios", "## Final Recommendation",
		"## Sign-off", "## Appendix",
	}
	last := -1
	for _, h := range headings {
		idx := strings.Index(doc.Text, h)
		require.NotEqual(t, -1, idx, "missing %s", h)
		assert.Greater(t, idx, last, "%s out of order", h)
		last = idx
	}

	assert.Contains(t, doc.Text, "### Dr. Lena Ortiz, Energy Economist")
	assert.Contains(t, doc.Text, "### Sam Okafor\n")
	assert.Contains(t, doc.Text, "| Scenario | Investment (USD) | Projected Return | Timeline | Risk |")
	assert.Contains(t, doc.Text, "| Regional | 1,250,000 | 27.5% | 24 months | Medium |")
	assert.Contains(t, doc.Text, "### Data Sources")
	assert.Contains(t, doc.Text, "- **Classification:** Restricted")
	assert.True(t, doc.Structure.Valid, doc.Structure.MissingSections)
}

func TestCompose_InnovationBriefWithoutPanel(t *testing.T) {
	content := Content{
		Summary:             "Summary.",
		Opportunity:         "Opportunity.",
		Scenarios:           []Scenario{{Name: "Base", Investment: 1000, ProjectedReturn: 10}},
		FinalRecommendation: "Go.",
	}
	doc, err := newTestComposer().Compose(document.TypeInnovationBrief, content, nil, document.ClassificationInternal)
	require.NoError(t, err)

	assert.NotContains(t, doc.Text, "Expert Panel")
	assert.NotContains(t, doc.Text, "## Appendix")
	assert.True(t, strings.HasPrefix(doc.Text, "# Innovation Brief\n"), "title defaults to type label")
}

func TestCompose_AllTypes(t *testing.T) {
	content := Content{
		Title:               "Everything",
		Summary:             "Summary text.",
		Opportunity:         "Opportunity text.",
		KeyFindings:         []string{"Finding."},
		Sections:            []Section{{Heading: "Detail", Body: "Body."}},
		Scenarios:           []Scenario{{Name: "Base", Investment: 10, ProjectedReturn: 1}},
		Recommendations:     []string{"Recommendation."},
		FinalRecommendation: "Final.",
		NextSteps:           []string{"Step."},
	}

	for _, typ := range document.Types() {
		t.Run(string(typ), func(t *testing.T) {
			doc, err := newTestComposer().Compose(typ, content, testMatrix(), document.ClassificationInternal)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(doc.Text, "# Everything\n"))
			assert.Contains(t, doc.Text, "## Sign-off")
			assert.True(t, doc.Structure.Valid, "%s: %v", typ, doc.Structure.MissingSections)
			assert.Equal(t, typ, doc.Metadata.Type)
		})
	}
}

func TestCompose_MissingRequiredContentFailsStructure(t *testing.T) {
	doc, err := newTestComposer().Compose(document.TypeExecutiveSummary, Content{Title: "Sparse", Summary: "Only this."}, nil, document.ClassificationPublic)
	require.NoError(t, err)
	assert.False(t, doc.Structure.Valid)
	assert.Contains(t, doc.Structure.MissingSections, "Key Findings")
	assert.Contains(t, doc.Structure.MissingSections, "Next Steps")
}

func TestCompose_HTMLSectionBody(t *testing.T) {
	content := Content{
		Title:       "Report",
		Summary:     "Summary.",
		KeyFindings: []string{"Finding."},
		Sections: []Section{{
			Heading: "Market",
			Body:    "<h1>Demand</h1><p>Demand is <strong>strong</strong>.</p><ul><li>North</li><li>South</li></ul>",
		}},
		Recommendations: []string{"Act."},
		NextSteps:       []string{"Go."},
	}

	doc, err := newTestComposer().Compose(document.TypeFullReport, content, nil, document.ClassificationInternal)
	require.NoError(t, err)

	assert.Contains(t, doc.Text, "### Demand")
	assert.NotContains(t, doc.Text, "\n# Demand")
	assert.Contains(t, doc.Text, "**strong**")
	assert.NotContains(t, doc.Text, "<p>")
	assert.True(t, doc.Structure.Valid, doc.Structure.MissingSections)
}

func TestCompose_ProseFormatterSkipsChrome(t *testing.T) {
	c := newTestComposer(
		WithIDSource(fixedIDs{id: "BIZ-ES-LOYW3V28-AB121"}),
		WithProseFormatter(brand.FormatForBrand),
	)
	doc, err := c.Compose(document.TypeExecutiveSummary, executiveContent(), nil, document.ClassificationPublic)
	require.NoError(t, err)

	assert.Contains(t, doc.Text, "BIZ-ES-LOYW3V28-AB121")
	assert.Contains(t, doc.Text, "## Sign-off")
	assert.Contains(t, doc.Text, "break even")
	assert.NotContains(t, doc.Text, "revolutionary")
}

func TestCompose_Locale(t *testing.T) {
	content := Content{
		Summary:             "s",
		Opportunity:         "o",
		Scenarios:           []Scenario{{Name: "Base", Investment: 1250000, ProjectedReturn: 10}},
		FinalRecommendation: "f",
	}
	doc, err := newTestComposer(WithLocale(language.BritishEnglish)).Compose(document.TypeInnovationBrief, content, nil, document.ClassificationPublic)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "- **Date:** 1 March 2026")
}

func TestCompose_FreshIDPerCall(t *testing.T) {
	c := New(WithClock(func() time.Time { return fixedTime }))
	a, err := c.Compose(document.TypeDailyBrief, Content{}, nil, document.ClassificationPublic)
	require.NoError(t, err)
	b, err := c.Compose(document.TypeDailyBrief, Content{}, nil, document.ClassificationPublic)
	require.NoError(t, err)
	assert.NotEqual(t, a.Metadata.ID, b.Metadata.ID)
	assert.True(t, strings.HasPrefix(a.Metadata.ID, "BIZ-DB-"))
}

func TestCompose_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	ids := make([]string, 32)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := c.Compose(document.TypeExecutiveSummary, executiveContent(), testMatrix(), document.ClassificationInternal)
			if assert.NoError(t, err) {
				ids[i] = doc.Metadata.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestCellEscaping(t *testing.T) {
	assert.Equal(t, `a \| b`, cell("a | b"))
	assert.Equal(t, "two lines", cell("two\nlines"))
	assert.Equal(t, "bold text", cell("<strong>bold</strong> text"))
}

func TestToTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "market_outlook", want: "Market Outlook"},
		{in: "RISK_register", want: "Risk Register"},
		{in: "étude_marché", want: "Étude Marché"},
		{in: "_leading__gaps_", want: "Leading Gaps"},
		{in: "Already spaced_heading", want: "Already spaced_heading"},
		{in: "plain", want: "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, toTitleCase(tt.in))
		})
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "March 1, 2026", FormatDate(fixedTime, language.AmericanEnglish))
	assert.Equal(t, "1 March 2026", FormatDate(fixedTime, language.BritishEnglish))
	assert.Equal(t, "March 1, 2026", FormatDate(fixedTime, language.Japanese))
}

func TestStampStatus(t *testing.T) {
	doc, err := newTestComposer().Compose(document.TypeExecutiveSummary, executiveContent(), nil, document.ClassificationInternal)
	require.NoError(t, err)
	require.Contains(t, doc.Text, "- **Status:** Draft\n")

	stamped := StampStatus(doc.Text, document.StatusPendingReview)
	assert.Contains(t, stamped, "- **Status:** Pending Review\n")
	assert.NotContains(t, stamped, "- **Status:** Draft")
	assert.Equal(t, len(strings.Split(doc.Text, "\n")), len(strings.Split(stamped, "\n")))
	assert.True(t, Validate(stamped, document.TypeExecutiveSummary).Valid)

	assert.Equal(t, "# Notes\n\n- **Status:** Draft\n", StampStatus("# Notes\n\n- **Status:** Draft\n", document.StatusFinal))
}
