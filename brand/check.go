package brand

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Report is the outcome of a compliance check.
type Report struct {
	Compliant bool     `json:"compliant"`
	Issues    []string `json:"issues"`
}

type located struct {
	pos   int
	issue string
}

// Check reports every banned-term occurrence, in text order, plus one
// aggregate issue when hyphenation exceeds the configured ratio. Text is
// compliant iff no issues are reported.
func (rs *Ruleset) Check(text string) Report {
	text = norm.NFC.String(text)

	var found []located
	for _, t := range rs.terms {
		for _, loc := range t.pattern.FindAllStringIndex(text, -1) {
			match := text[loc[0]:loc[1]]
			issue := fmt.Sprintf("banned term %q", match)
			if t.Replacement != "" {
				issue += fmt.Sprintf(" (use %q)", t.Replacement)
			}
			found = append(found, located{pos: loc[0], issue: issue})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	issues := make([]string, 0, len(found)+1)
	for _, f := range found {
		issues = append(issues, f.issue)
	}

	if words := len(strings.Fields(text)); words > 0 {
		hyphens := countHyphens(text)
		ratio := float64(hyphens) / float64(words)
		if ratio > rs.maxHyphenRatio {
			issues = append(issues, fmt.Sprintf(
				"excessive hyphenation: %d hyphenated joins in %d words (%.1f%% > %.1f%%)",
				hyphens, words, ratio*100, rs.maxHyphenRatio*100))
		}
	}

	return Report{Compliant: len(issues) == 0, Issues: issues}
}

// countHyphens counts every hyphen joining two alphanumeric runs. Allowed
// compounds and digit-joined tokens such as dates count too: the allow-list
// only protects a compound from Format, it does not exempt it from the ratio.
func countHyphens(text string) int {
	n := 0
	for _, chain := range compoundPattern.FindAllString(text, -1) {
		n += strings.Count(chain, "-")
	}
	return n
}
