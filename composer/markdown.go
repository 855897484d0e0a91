package composer

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/scoring"
)

// renderInput is everything the renderer needs for one document. Bodies in
// Content have already been normalised to markdown.
type renderInput struct {
	template   Template
	meta       *document.Metadata
	content    Content
	summary    *scoring.Summary
	date       string
	numbers    numberFormat
	preparedBy string
	reviewedBy string
}

// renderer writes the canonical markdown form of a document.
type renderer struct {
	sb strings.Builder
	in renderInput
}

func render(in renderInput) string {
	r := &renderer{in: in}
	r.writeHeader()
	for _, spec := range in.template.Sections {
		r.writeSection(spec)
	}
	r.writeFooter()
	return r.sb.String()
}

func (r *renderer) writeHeader() {
	m := r.in.meta
	r.sb.WriteString("# ")
	r.sb.WriteString(oneLine(m.Title))
	r.sb.WriteString("\n\n")
	r.writeField("Document ID", m.ID)
	r.writeField("Type", m.Type.Label())
	r.writeField("Classification", m.Classification.Label())
	r.writeField("Date", r.in.date)
	r.writeField("Version", m.Version)
	r.sb.WriteString("\n")
}

func (r *renderer) writeFooter() {
	r.sb.WriteString("---\n\n")
	r.sb.WriteString("**Classification:** ")
	r.sb.WriteString(r.in.meta.Classification.Label())
	r.sb.WriteString("\n")
}

// writeSection renders one template section, or nothing when the section
// has no content.
func (r *renderer) writeSection(spec SectionSpec) {
	c := r.in.content
	var body strings.Builder

	switch spec.Kind {
	case SectionSummary:
		writeParagraph(&body, c.Summary)
	case SectionOpportunity:
		writeParagraph(&body, c.Opportunity)
	case SectionFinalRecommendation:
		writeParagraph(&body, c.FinalRecommendation)
	case SectionKeyFindings:
		writeBullets(&body, c.KeyFindings)
	case SectionRecommendations:
		writeBullets(&body, c.Recommendations)
	case SectionNextSteps:
		writeNumbered(&body, c.NextSteps)
	case SectionAnalysis:
		writeSubsections(&body, c.Sections)
	case SectionAppendix:
		writeSubsections(&body, c.Appendix)
	case SectionExpertPanel:
		r.writeExperts(&body)
	case SectionScoring:
		r.writeScoring(&body)
	case SectionScenarios:
		r.writeScenarios(&body)
	case SectionSignOff:
		r.writeSignOff(&body)
	}

	if body.Len() == 0 {
		return
	}
	r.sb.WriteString("## ")
	r.sb.WriteString(spec.Heading)
	r.sb.WriteString("\n\n")
	r.sb.WriteString(body.String())
}

func (r *renderer) writeField(label, value string) {
	r.sb.WriteString("- **")
	r.sb.WriteString(label)
	r.sb.WriteString(":** ")
	r.sb.WriteString(value)
	r.sb.WriteString("\n")
}

func writeParagraph(sb *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	sb.WriteString(text)
	sb.WriteString("\n\n")
}

func writeBullets(sb *strings.Builder, items []string) {
	n := 0
	for _, item := range items {
		if item = oneLine(item); item == "" {
			continue
		}
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
		n++
	}
	if n > 0 {
		sb.WriteString("\n")
	}
}

func writeNumbered(sb *strings.Builder, items []string) {
	n := 0
	for _, item := range items {
		if item = oneLine(item); item == "" {
			continue
		}
		n++
		sb.WriteString(strconv.Itoa(n))
		sb.WriteString(". ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	if n > 0 {
		sb.WriteString("\n")
	}
}

func writeSubsections(sb *strings.Builder, sections []Section) {
	for _, s := range sections {
		heading := oneLine(s.Heading)
		body := strings.TrimSpace(s.Body)
		if heading == "" && body == "" {
			continue
		}
		if heading != "" {
			sb.WriteString("### ")
			sb.WriteString(toTitleCase(heading))
			sb.WriteString("\n\n")
		}
		writeParagraph(sb, body)
	}
}

func (r *renderer) writeExperts(sb *strings.Builder) {
	for _, e := range r.in.content.ExpertPanel {
		name := oneLine(e.Name)
		if name == "" && strings.TrimSpace(e.Opinion) == "" {
			continue
		}
		sb.WriteString("### ")
		sb.WriteString(name)
		if role := oneLine(e.Role); role != "" {
			sb.WriteString(", ")
			sb.WriteString(role)
		}
		sb.WriteString("\n\n")
		writeParagraph(sb, e.Opinion)
	}
}

// writeScoring renders the matrix with a synthesised Overall row. Absent
// entirely when no matrix was supplied.
func (r *renderer) writeScoring(sb *strings.Builder) {
	s := r.in.summary
	if s == nil {
		return
	}
	f := r.in.numbers

	sb.WriteString("| Dimension | Score | Weight | Weighted Score | Assessment |\n")
	sb.WriteString("| --- | ---: | ---: | ---: | --- |\n")
	for _, e := range s.Entries {
		writeRow(sb,
			cell(e.Dimension),
			f.Int(e.Score),
			f.Compact(e.Weight)+"%",
			f.Decimal(e.WeightedScore()),
			cell(e.Assessment),
		)
	}
	writeRow(sb,
		"**Overall**",
		"**"+f.Int(s.Overall)+"**",
		"**"+f.Compact(s.TotalWeight)+"%**",
		"**"+f.Decimal(s.WeightedTotal)+"**",
		"**"+string(s.Rating.Rating)+"**",
	)
	sb.WriteString("\n**Overall Rating:** ")
	sb.WriteString(string(s.Rating.Rating))
	sb.WriteString(" (")
	sb.WriteString(f.Int(s.Overall))
	sb.WriteString("/100). ")
	sb.WriteString(s.Rating.Description)
	sb.WriteString(".\n\n")
}

func (r *renderer) writeScenarios(sb *strings.Builder) {
	scenarios := r.in.content.Scenarios
	if len(scenarios) == 0 {
		return
	}
	f := r.in.numbers
	currency := strings.ToUpper(strings.TrimSpace(r.in.content.Currency))
	if currency == "" {
		currency = "USD"
	}

	sb.WriteString("| Scenario | Investment (" + currency + ") | Projected Return | Timeline | Risk |\n")
	sb.WriteString("| --- | ---: | ---: | --- | --- |\n")
	for _, s := range scenarios {
		writeRow(sb,
			cell(s.Name),
			f.Int(s.Investment),
			f.Compact(s.ProjectedReturn)+"%",
			cell(s.Timeline),
			cell(s.Risk),
		)
	}
	sb.WriteString("\n")
}

func (r *renderer) writeSignOff(sb *strings.Builder) {
	m := r.in.meta
	fields := [][2]string{
		{"Prepared By", r.in.preparedBy},
		{"Reviewed By", r.in.reviewedBy},
		{"Date", r.in.date},
		{"Classification", m.Classification.Label()},
		{"Status", m.Status.Label()},
	}
	for _, f := range fields {
		sb.WriteString("- **")
		sb.WriteString(f[0])
		sb.WriteString(":** ")
		sb.WriteString(f[1])
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func writeRow(sb *strings.Builder, cells ...string) {
	sb.WriteString("|")
	for _, c := range cells {
		sb.WriteString(" ")
		sb.WriteString(c)
		sb.WriteString(" |")
	}
	sb.WriteString("\n")
}

// cell makes text safe for a single table cell.
func cell(s string) string {
	s = oneLine(s)
	if looksLikeHTML(s) {
		s = plainText(strings.NewReader(s))
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

// oneLine collapses whitespace, including newlines, to single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// toTitleCase converts snake_case headings to Title Case and leaves
// already-spaced headings untouched.
func toTitleCase(s string) string {
	if !strings.Contains(s, "_") || strings.Contains(s, " ") {
		return s
	}
	words := strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
	return cases.Title(language.Und).String(words)
}
