package composer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/c360studio/semreport/document"
)

// Pre-compiled regex patterns for performance
var (
	// titleRe matches the single H1 document title
	titleRe = regexp.MustCompile(`(?m)^#\s+\S.*$`)
	// nextSectionRe matches markdown section headers (# or ##)
	nextSectionRe = regexp.MustCompile(`(?m)^#{1,2}\s+`)
	// emptySectionRe matches a ## header followed immediately by another ##
	emptySectionRe = regexp.MustCompile(`(?m)^##\s+[^\n]+\n\s*\n##`)
)

// placeholders are fragments that indicate unfinished prose.
var placeholders = []string{
	"TODO", "FIXME", "TBD",
	"[placeholder]", "[insert",
	"Lorem ipsum",
}

// ValidationResult reports whether composed text has its template's
// required structure.
type ValidationResult struct {
	Valid           bool              `json:"valid"`
	DocumentType    document.Type     `json:"document_type"`
	MissingSections []string          `json:"missing_sections,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
	SectionDetails  map[string]string `json:"section_details,omitempty"`
}

// sectionRequirement is a required heading and its minimum content.
type sectionRequirement struct {
	name       string
	pattern    *regexp.Regexp
	minContent int
}

// Validate checks composed text against the required sections of the
// document type's template: the title, and every Required heading with
// non-empty content.
func Validate(text string, t document.Type) *ValidationResult {
	result := &ValidationResult{
		Valid:          true,
		DocumentType:   t,
		SectionDetails: make(map[string]string),
	}

	tmpl, ok := TemplateFor(t)
	if !ok {
		result.Valid = false
		result.Warnings = append(result.Warnings, fmt.Sprintf("Unknown document type: %s", t))
		return result
	}

	for _, req := range requirementsFor(tmpl) {
		match := req.pattern.FindStringIndex(text)
		if match == nil {
			result.Valid = false
			result.MissingSections = append(result.MissingSections, req.name)
			continue
		}

		if req.minContent == 0 {
			result.SectionDetails[req.name] = "OK"
			continue
		}

		sectionStart := match[1]
		sectionContent := text[sectionStart:]
		if next := findNextSection(sectionContent); next != -1 {
			sectionContent = sectionContent[:next]
		}
		trimmed := strings.TrimSpace(sectionContent)
		if len(trimmed) < req.minContent {
			result.Valid = false
			result.MissingSections = append(result.MissingSections,
				fmt.Sprintf("%s: section too short (min %d chars, got %d)", req.name, req.minContent, len(trimmed)))
			continue
		}
		result.SectionDetails[req.name] = fmt.Sprintf("OK (%d chars)", len(trimmed))
	}

	result.Warnings = append(result.Warnings, checkCommonIssues(text)...)
	return result
}

func requirementsFor(tmpl Template) []sectionRequirement {
	reqs := []sectionRequirement{{name: "Title", pattern: titleRe}}
	for _, s := range tmpl.Sections {
		if !s.Required {
			continue
		}
		reqs = append(reqs, sectionRequirement{
			name:       s.Heading,
			pattern:    regexp.MustCompile(`(?m)^##\s+` + regexp.QuoteMeta(s.Heading) + `\s*$`),
			minContent: 1,
		})
	}
	return reqs
}

// findNextSection finds the index of the next markdown section header.
func findNextSection(content string) int {
	match := nextSectionRe.FindStringIndex(content)
	if match == nil {
		return -1
	}
	return match[0]
}

// checkCommonIssues checks for common document quality issues.
func checkCommonIssues(text string) []string {
	var warnings []string
	lower := strings.ToLower(text)
	for _, p := range placeholders {
		if strings.Contains(lower, strings.ToLower(p)) {
			warnings = append(warnings, fmt.Sprintf("Contains placeholder text: %s", p))
		}
	}
	if emptySectionRe.MatchString(text) {
		warnings = append(warnings, "Contains empty sections")
	}
	return warnings
}

// Issues returns the result as a flat list of defects, for callers that
// merge structure problems into a QA report.
func (r *ValidationResult) Issues() []string {
	issues := make([]string, 0, len(r.MissingSections)+len(r.Warnings))
	for _, m := range r.MissingSections {
		issues = append(issues, "Missing or incomplete section: "+m)
	}
	issues = append(issues, r.Warnings...)
	return issues
}

// FormatFeedback formats validation results as a markdown report.
func (r *ValidationResult) FormatFeedback() string {
	if r.Valid && len(r.Warnings) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Structure Check\n\n")
	if len(r.MissingSections) > 0 {
		sb.WriteString("### Missing or Incomplete Sections\n\n")
		for _, section := range r.MissingSections {
			sb.WriteString(fmt.Sprintf("- %s\n", section))
		}
		sb.WriteString("\n")
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("### Warnings\n\n")
		for _, warning := range r.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", warning))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
