package composer

import (
	"regexp"
	"strings"

	"github.com/c360studio/semreport/document"
)

var signOffStatusPattern = regexp.MustCompile(`(?m)^- \*\*Status:\*\* .*$`)

// StampStatus rewrites the status line of the sign-off section so the text
// matches metadata that advanced after composition. Text without a sign-off
// section is returned unchanged.
func StampStatus(text string, status document.Status) string {
	idx := strings.Index(text, "\n## Sign-off\n")
	if idx < 0 {
		return text
	}
	head, tail := text[:idx], text[idx:]
	loc := signOffStatusPattern.FindStringIndex(tail)
	if loc == nil {
		return text
	}
	return head + tail[:loc[0]] + "- **Status:** " + status.Label() + tail[loc[1]:]
}
