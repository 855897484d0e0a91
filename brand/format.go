package brand

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// maxFormatPasses bounds the fixpoint loop in Format. Validated rules settle
// in two passes; the extra headroom covers hand-built rulesets.
const maxFormatPasses = 8

// compoundPattern matches a hyphen chain of alphanumeric parts, e.g.
// "well-known" or "go-to-market". Leading, trailing and doubled hyphens
// are not part of a chain.
var compoundPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:-[\p{L}\p{N}]+)+`)

// Format rewrites text toward the house style: banned terms with a known
// replacement are substituted, and hyphenated compounds that are not on the
// allow-list are split into separate words. Terms without a replacement are
// left for Check to report.
//
// Format is idempotent: Format(Format(x)) == Format(x).
func (rs *Ruleset) Format(text string) string {
	out := norm.NFC.String(text)
	for i := 0; i < maxFormatPasses; i++ {
		next := rs.splitCompounds(rs.replaceVocabulary(out))
		if next == out {
			break
		}
		out = next
	}
	return out
}

func (rs *Ruleset) replaceVocabulary(text string) string {
	for _, t := range rs.terms {
		if t.Replacement == "" {
			continue
		}
		repl := t.Replacement
		text = t.pattern.ReplaceAllStringFunc(text, func(match string) string {
			return matchCase(match, repl)
		})
	}
	return text
}

func (rs *Ruleset) splitCompounds(text string) string {
	return compoundPattern.ReplaceAllStringFunc(text, func(chain string) string {
		segments := rs.segment(strings.Split(chain, "-"))
		var b strings.Builder
		for i, seg := range segments {
			if i > 0 {
				prev := segments[i-1]
				if isWord(prev[len(prev)-1]) && isWord(seg[0]) {
					b.WriteByte(' ')
				} else {
					b.WriteByte('-')
				}
			}
			b.WriteString(strings.Join(seg, "-"))
		}
		return b.String()
	})
}

// segment groups the parts of a hyphen chain, greedily keeping the longest
// allow-listed run starting at each position intact.
func (rs *Ruleset) segment(parts []string) [][]string {
	var segments [][]string
	for i := 0; i < len(parts); {
		end := i + 1
		for j := len(parts); j > i+1; j-- {
			if rs.allowed[strings.Join(parts[i:j], "-")] {
				end = j
				break
			}
		}
		segments = append(segments, parts[i:end])
		i = end
	}
	return segments
}

// isWord reports whether a chain part is made of letters only. Parts with
// digits (dates, versions, codes) keep their hyphens.
func isWord(part string) bool {
	for _, r := range part {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return part != ""
}

// matchCase applies the casing of the matched text to its replacement:
// ALL CAPS stays all caps, a leading capital stays capitalised.
func matchCase(match, repl string) string {
	if isAllUpper(match) {
		return strings.ToUpper(repl)
	}
	first, _ := utf8.DecodeRuneInString(match)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(repl)
		return string(unicode.ToUpper(r)) + repl[size:]
	}
	return repl
}

func isAllUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}
