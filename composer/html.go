package composer

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)
	atxHeadingRe     = regexp.MustCompile(`^(#{1,6})(\s+.*)$`)
)

// minBodyHeadingLevel keeps headings inside body text below the template's
// own ## section headings.
const minBodyHeadingLevel = 3

// blockTags are elements whose presence marks a body as HTML rather than
// markdown with an incidental angle bracket.
var blockTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Ul: true, atom.Ol: true, atom.Li: true,
	atom.Table: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Strong: true, atom.Em: true, atom.B: true, atom.I: true, atom.A: true,
	atom.Br: true, atom.Blockquote: true, atom.Pre: true, atom.Code: true, atom.Span: true,
}

// htmlConverter turns rich-text section bodies into markdown.
type htmlConverter struct {
	converter *md.Converter
}

func newHTMLConverter() *htmlConverter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	converter.Remove("script", "style")
	return &htmlConverter{converter: converter}
}

// looksLikeHTML reports whether body contains at least one known element.
func looksLikeHTML(body string) bool {
	if !strings.Contains(body, "<") {
		return false
	}
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockTags[atom.Lookup(name)] {
				return true
			}
		}
	}
}

// Body normalises a section body to markdown: HTML is converted, and body
// headings are demoted below the section heading level.
func (c *htmlConverter) Body(body string) (string, error) {
	body = strings.TrimSpace(body)
	if looksLikeHTML(body) {
		converted, err := c.converter.ConvertString(body)
		if err != nil {
			return "", fmt.Errorf("convert html body: %w", err)
		}
		body = strings.TrimSpace(excessiveLinesRe.ReplaceAllString(converted, "\n\n"))
	}
	return demoteHeadings(body), nil
}

// demoteHeadings shifts ATX headings outside fenced code blocks to at least
// minBodyHeadingLevel.
func demoteHeadings(body string) string {
	lines := strings.Split(body, "\n")
	inFence := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := atxHeadingRe.FindStringSubmatch(line)
		if m == nil || len(m[1]) >= minBodyHeadingLevel {
			continue
		}
		lines[i] = strings.Repeat("#", minBodyHeadingLevel) + m[2]
	}
	return strings.Join(lines, "\n")
}

// plainText extracts the text content of an HTML fragment. Used for table
// cells, where markdown block syntax cannot appear.
func plainText(r io.Reader) string {
	z := html.NewTokenizer(r)
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.TextToken:
			sb.Write(z.Text())
			sb.WriteByte(' ')
		}
	}
}
