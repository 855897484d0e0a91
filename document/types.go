// Package document defines the identity and lifecycle record of a generated
// document: its type, classification, status and metadata.
package document

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrInvalidTransition is returned when a status change is not a single
	// forward step in the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrFinalized is returned when mutating metadata that has reached final.
	ErrFinalized = errors.New("document is final")
)

// Type identifies the kind of document and selects its template.
type Type string

const (
	// TypeExecutiveSummary is a short scored overview with next steps.
	TypeExecutiveSummary Type = "executive_summary"
	// TypeInnovationBrief assesses an opportunity with investment scenarios.
	TypeInnovationBrief Type = "innovation_brief"
	// TypeFullReport is the long-form analysis.
	TypeFullReport Type = "full_report"
	// TypeInvestmentAnalysis covers financials and investment scenarios.
	TypeInvestmentAnalysis Type = "investment_analysis"
	// TypeStrategicAssessment evaluates strategic position.
	TypeStrategicAssessment Type = "strategic_assessment"
	// TypeProjectGenesis captures a new venture's founding case.
	TypeProjectGenesis Type = "project_genesis"
	// TypeDailyBrief is the morning operational brief.
	TypeDailyBrief Type = "daily_brief"
	// TypeEveningReview is the end-of-day review.
	TypeEveningReview Type = "evening_review"
)

type typeInfo struct {
	prefix string
	label  string
}

var typeTable = map[Type]typeInfo{
	TypeExecutiveSummary:    {prefix: "ES", label: "Executive Summary"},
	TypeInnovationBrief:     {prefix: "IB", label: "Innovation Brief"},
	TypeFullReport:          {prefix: "FR", label: "Full Report"},
	TypeInvestmentAnalysis:  {prefix: "IA", label: "Investment Analysis"},
	TypeStrategicAssessment: {prefix: "SA", label: "Strategic Assessment"},
	TypeProjectGenesis:      {prefix: "PG", label: "Project Genesis"},
	TypeDailyBrief:          {prefix: "DB", label: "Daily Brief"},
	TypeEveningReview:       {prefix: "ER", label: "Evening Review"},
}

// Types returns all supported document types in declaration order.
func Types() []Type {
	return []Type{
		TypeExecutiveSummary,
		TypeInnovationBrief,
		TypeFullReport,
		TypeInvestmentAnalysis,
		TypeStrategicAssessment,
		TypeProjectGenesis,
		TypeDailyBrief,
		TypeEveningReview,
	}
}

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the type is a supported document type.
func (t Type) IsValid() bool {
	_, ok := typeTable[t]
	return ok
}

// Prefix returns the two-letter ID prefix for the type.
func (t Type) Prefix() string {
	return typeTable[t].prefix
}

// Label returns the human-readable name of the type.
func (t Type) Label() string {
	return typeTable[t].label
}

// ParseType parses a type name. Hyphens and case are tolerated so CLI input
// like "Executive-Summary" resolves.
func ParseType(s string) (Type, error) {
	t := Type(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown document type %q", s)
	}
	return t, nil
}

// Classification is an ordered confidentiality label.
type Classification string

const (
	// ClassificationPublic may be shared freely.
	ClassificationPublic Classification = "public"
	// ClassificationInternal is for internal distribution.
	ClassificationInternal Classification = "internal"
	// ClassificationConfidential is restricted to named recipients.
	ClassificationConfidential Classification = "confidential"
	// ClassificationRestricted is the most sensitive level.
	ClassificationRestricted Classification = "restricted"
)

var classificationLevels = map[Classification]int{
	ClassificationPublic:       0,
	ClassificationInternal:     1,
	ClassificationConfidential: 2,
	ClassificationRestricted:   3,
}

// Classifications returns all levels, least sensitive first.
func Classifications() []Classification {
	return []Classification{
		ClassificationPublic,
		ClassificationInternal,
		ClassificationConfidential,
		ClassificationRestricted,
	}
}

// String returns the string representation of the classification.
func (c Classification) String() string {
	return string(c)
}

// IsValid returns true if the classification is a known level.
func (c Classification) IsValid() bool {
	_, ok := classificationLevels[c]
	return ok
}

// Level returns the ordinal of the classification, 0 for public.
// Unknown values return -1.
func (c Classification) Level() int {
	if l, ok := classificationLevels[c]; ok {
		return l
	}
	return -1
}

// Less reports whether c is less sensitive than other.
func (c Classification) Less(other Classification) bool {
	return c.Level() < other.Level()
}

// Label returns the capitalised label, e.g. "Confidential".
func (c Classification) Label() string {
	return titleCase(string(c))
}

// ParseClassification parses a classification name, case-insensitively.
func ParseClassification(s string) (Classification, error) {
	c := Classification(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("unknown classification %q", s)
	}
	return c, nil
}

// Status is the lifecycle state of a document.
//
//	draft → pending_review → approved → final
type Status string

const (
	// StatusDraft indicates the document has been composed but not reviewed.
	StatusDraft Status = "draft"
	// StatusPendingReview indicates the document is undergoing QA.
	StatusPendingReview Status = "pending_review"
	// StatusApproved indicates QA completed and the document was approved.
	StatusApproved Status = "approved"
	// StatusFinal indicates the document is published and immutable.
	StatusFinal Status = "final"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPendingReview, StatusApproved, StatusFinal:
		return true
	default:
		return false
	}
}

// Label returns the human-readable status, e.g. "Pending Review".
func (s Status) Label() string {
	return titleCase(strings.ReplaceAll(string(s), "_", " "))
}

// Next returns the following lifecycle state. Final has no successor.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusDraft:
		return StatusPendingReview, true
	case StatusPendingReview:
		return StatusApproved, true
	case StatusApproved:
		return StatusFinal, true
	default:
		return "", false
	}
}

// CanTransitionTo returns true if target is the single next step after s.
func (s Status) CanTransitionTo(target Status) bool {
	next, ok := s.Next()
	return ok && next == target
}

// Reaches returns true if target is s or lies ahead of s in the lifecycle.
func (s Status) Reaches(target Status) bool {
	for cur, ok := s, true; ok; cur, ok = cur.Next() {
		if cur == target {
			return true
		}
	}
	return false
}

// titleCase builds a fresh Caser per call; Casers are stateful and must not
// be shared between goroutines.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// ParseStatus parses a status name. Hyphens and spaces are accepted in
// place of underscores.
func ParseStatus(s string) (Status, error) {
	norm := strings.NewReplacer("-", "_", " ", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	st := Status(norm)
	if !st.IsValid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}
