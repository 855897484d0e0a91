// Package brand implements the deterministic house-style rules for generated
// documents: banned vocabulary with fixed substitutions and hyphenation
// conventions. The rule tables are data (YAML), compiled once into an
// immutable Ruleset.
package brand

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// DefaultMaxHyphenRatio is the hyphen/word ratio above which text is flagged.
const DefaultMaxHyphenRatio = 0.05

// BannedTerm is a word or phrase that must not appear in a document.
// Replacement is optional; terms without one are reported but never rewritten.
type BannedTerm struct {
	Term        string `yaml:"term" json:"term"`
	Replacement string `yaml:"replacement,omitempty" json:"replacement,omitempty"`
}

// Rules is the serialisable form of the style rules.
type Rules struct {
	Banned           []BannedTerm `yaml:"banned" json:"banned"`
	AllowedCompounds []string     `yaml:"allowed_compounds" json:"allowed_compounds"`
	MaxHyphenRatio   float64      `yaml:"max_hyphen_ratio" json:"max_hyphen_ratio"`
}

// Validate checks that the rules are internally consistent. Replacements
// that are themselves banned or hyphenated would stop the formatter from
// reaching a fixed point.
func (r *Rules) Validate() error {
	seen := make(map[string]bool, len(r.Banned))
	for _, b := range r.Banned {
		term := strings.TrimSpace(b.Term)
		if term == "" {
			return fmt.Errorf("banned term must not be empty")
		}
		key := strings.ToLower(term)
		if seen[key] {
			return fmt.Errorf("duplicate banned term %q", term)
		}
		seen[key] = true
	}

	for _, b := range r.Banned {
		if b.Replacement == "" {
			continue
		}
		if strings.Contains(b.Replacement, "-") {
			return fmt.Errorf("replacement %q for %q must not contain hyphens", b.Replacement, b.Term)
		}
		for _, other := range r.Banned {
			if termPattern(other.Term).MatchString(b.Replacement) {
				return fmt.Errorf("replacement %q for %q contains banned term %q", b.Replacement, b.Term, other.Term)
			}
		}
	}

	for _, c := range r.AllowedCompounds {
		if !strings.Contains(c, "-") {
			return fmt.Errorf("allowed compound %q has no hyphen", c)
		}
	}

	if r.MaxHyphenRatio < 0 || r.MaxHyphenRatio > 1 {
		return fmt.Errorf("max_hyphen_ratio must be between 0 and 1, got %v", r.MaxHyphenRatio)
	}
	return nil
}

// ParseRules decodes YAML rules and applies defaults.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse brand rules: %w", err)
	}
	if r.MaxHyphenRatio == 0 {
		r.MaxHyphenRatio = DefaultMaxHyphenRatio
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid brand rules: %w", err)
	}
	return &r, nil
}

// LoadRules reads and compiles a rules file.
func LoadRules(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read brand rules: %w", err)
	}
	r, err := ParseRules(data)
	if err != nil {
		return nil, err
	}
	return Compile(r), nil
}

// compiledTerm is a banned term with its word-boundary matcher.
type compiledTerm struct {
	BannedTerm
	pattern *regexp.Regexp
}

// Ruleset is a compiled, immutable set of rules. Safe for concurrent use.
type Ruleset struct {
	terms          []compiledTerm
	allowed        map[string]bool
	maxHyphenRatio float64
}

// Compile builds a Ruleset from validated Rules.
func Compile(r *Rules) *Ruleset {
	rs := &Ruleset{
		terms:          make([]compiledTerm, 0, len(r.Banned)),
		allowed:        make(map[string]bool, len(r.AllowedCompounds)),
		maxHyphenRatio: r.MaxHyphenRatio,
	}
	for _, b := range r.Banned {
		rs.terms = append(rs.terms, compiledTerm{BannedTerm: b, pattern: termPattern(b.Term)})
	}
	for _, c := range r.AllowedCompounds {
		rs.allowed[c] = true
	}
	return rs
}

// Rules returns the serialisable form of the ruleset.
func (rs *Ruleset) Rules() Rules {
	out := Rules{MaxHyphenRatio: rs.maxHyphenRatio}
	for _, t := range rs.terms {
		out.Banned = append(out.Banned, t.BannedTerm)
	}
	for c := range rs.allowed {
		out.AllowedCompounds = append(out.AllowedCompounds, c)
	}
	return out
}

// termPattern matches a term case-insensitively on word boundaries.
func termPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(strings.TrimSpace(term)) + `\b`)
}

// Process-wide default ruleset and initialization guard.
var (
	defaultRuleset *Ruleset
	defaultOnce    sync.Once
)

// Default returns the process-wide ruleset, compiling the embedded rules on
// first use unless InitDefault ran first.
func Default() *Ruleset {
	defaultOnce.Do(func() {
		r, err := ParseRules(defaultRulesYAML)
		if err != nil {
			panic(fmt.Sprintf("brand: embedded rules invalid: %v", err))
		}
		defaultRuleset = Compile(r)
	})
	return defaultRuleset
}

// InitDefault installs a custom ruleset as the process-wide default.
// Must be called before any call to Default() to take effect.
func InitDefault(rs *Ruleset) {
	defaultOnce.Do(func() {
		defaultRuleset = rs
	})
}

// FormatForBrand rewrites text with the process-wide ruleset.
func FormatForBrand(text string) string {
	return Default().Format(text)
}

// CheckCompliance checks text against the process-wide ruleset.
func CheckCompliance(text string) Report {
	return Default().Check(text)
}
