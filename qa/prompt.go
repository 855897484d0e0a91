package qa

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/llm"
)

// DefaultExcerptLimit is the number of characters of document text sent
// for review. Judgement does not cover text beyond it.
const DefaultExcerptLimit = 5000

// schemaName identifies the verdict schema to providers with structured output.
const schemaName = "qa_check_result"

// SystemPrompt returns the instructions for the QA reviewer role.
func SystemPrompt() string {
	return `You are a quality assurance reviewer for business documents prepared for executives and investors.

## Your Objective

Judge the document excerpt on six dimensions and report specific defects.
Each dimension is a strict pass/fail.

## Dimensions

- **brand_compliance**: Professional, plain language. No hype ("revolutionary", "game-changing"), no dramatic framing ("crisis", "paradox"), no gratuitous hyphenated compounds.
- **content_quality**: Clear, specific, well-argued prose a decision maker can act on.
- **accuracy**: Figures, dates and scores are internally consistent. The overall score matches the scoring matrix when one is present.
- **completeness**: Every section the document type calls for is present and substantive. No placeholders.
- **formatting**: Consistent markdown: one title, ordered sections, well-formed tables and lists.
- **classification**: Nothing in the content is more sensitive than the stated classification allows.

## Rules

- Only judge what is in the excerpt. If the excerpt is truncated, do not fail completeness for sections after the cut.
- Every false dimension must be explained by at least one entry in issues.
- Recommendations are optional improvements and may be given when every dimension passes.
- Do not include a "passed" field; it is derived from the six dimensions.

## Output Format

Respond with JSON only:

` + "```json" + `
{
  "brand_compliance": true,
  "content_quality": true,
  "accuracy": true,
  "completeness": true,
  "formatting": true,
  "classification": true,
  "issues": ["Specific defect, quoting the offending text"],
  "recommendations": ["Concrete improvement"]
}
` + "```" + `
`
}

// UserPrompt returns the review request for one document.
func UserPrompt(excerpt string, truncated bool, meta *document.Metadata) string {
	var sb strings.Builder

	sb.WriteString("Review the following document.\n\n")
	sb.WriteString("## Document Context\n\n")
	sb.WriteString(fmt.Sprintf("- **Document ID:** %s\n", meta.ID))
	sb.WriteString(fmt.Sprintf("- **Type:** %s\n", meta.Type.Label()))
	sb.WriteString(fmt.Sprintf("- **Classification:** %s\n", meta.Classification.Label()))
	sb.WriteString(fmt.Sprintf("- **Version:** %s\n", meta.Version))
	if truncated {
		sb.WriteString(fmt.Sprintf("- **Excerpt:** first %d characters only\n", utf8.RuneCountInString(excerpt)))
	}
	sb.WriteString("\n## Document\n\n")
	sb.WriteString("````markdown\n")
	sb.WriteString(excerpt)
	if !strings.HasSuffix(excerpt, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("````\n\n")
	sb.WriteString("Judge each dimension and produce your JSON verdict.\n")

	return sb.String()
}

// Excerpt truncates text to at most limit characters (runes). A limit of
// zero or less means no truncation.
func Excerpt(text string, limit int) (string, bool) {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text, false
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i], true
		}
		n++
	}
	return text, false
}

// ResponseSchema is the strict JSON schema of the verdict payload.
func ResponseSchema() *llm.ResponseSchema {
	props := map[string]any{}
	required := make([]string, 0, 8)
	for _, name := range CheckNames() {
		props[name] = map[string]any{"type": "boolean"}
		required = append(required, name)
	}
	for _, name := range []string{"issues", "recommendations"} {
		props[name] = map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
		required = append(required, name)
	}
	return &llm.ResponseSchema{
		Name: schemaName,
		Schema: map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		},
	}
}

// verdictPayload mirrors the response contract. Pointers distinguish an
// omitted check from an explicit false.
type verdictPayload struct {
	BrandCompliance *bool    `json:"brand_compliance"`
	ContentQuality  *bool    `json:"content_quality"`
	Accuracy        *bool    `json:"accuracy"`
	Completeness    *bool    `json:"completeness"`
	Formatting      *bool    `json:"formatting"`
	Classification  *bool    `json:"classification"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// parseVerdict decodes a reasoning reply. Omitted checks default to true
// and are listed in DefaultedChecks. Any field of the wrong type makes the
// whole reply malformed. Passed is recomputed; a "passed" field in the
// reply is ignored.
func parseVerdict(content string) (*CheckResult, error) {
	raw := llm.ExtractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var p verdictPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("parse verdict: %w (content: %s)", err, raw[:min(200, len(raw))])
	}

	result := &CheckResult{
		Issues:          nonNil(p.Issues),
		Recommendations: nonNil(p.Recommendations),
	}
	fields := []struct {
		name string
		src  *bool
		dst  *bool
	}{
		{CheckBrandCompliance, p.BrandCompliance, &result.BrandCompliance},
		{CheckContentQuality, p.ContentQuality, &result.ContentQuality},
		{CheckAccuracy, p.Accuracy, &result.Accuracy},
		{CheckCompleteness, p.Completeness, &result.Completeness},
		{CheckFormatting, p.Formatting, &result.Formatting},
		{CheckClassification, p.Classification, &result.Classification},
	}
	for _, f := range fields {
		if f.src == nil {
			*f.dst = true
			result.DefaultedChecks = append(result.DefaultedChecks, f.name)
			continue
		}
		*f.dst = *f.src
	}
	result.Recompute()
	return result, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
