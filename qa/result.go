// Package qa runs the quality-assurance pass over a composed document. An
// external reasoning model judges six quality dimensions; local brand and
// structure checks are folded into the verdict before it is returned.
package qa

import (
	"fmt"
	"strings"
)

// Check names as they appear in the reasoning contract and in results.
const (
	CheckBrandCompliance = "brand_compliance"
	CheckContentQuality  = "content_quality"
	CheckAccuracy        = "accuracy"
	CheckCompleteness    = "completeness"
	CheckFormatting      = "formatting"
	CheckClassification  = "classification"
)

// CheckNames lists the six checks in reporting order.
func CheckNames() []string {
	return []string{
		CheckBrandCompliance,
		CheckContentQuality,
		CheckAccuracy,
		CheckCompleteness,
		CheckFormatting,
		CheckClassification,
	}
}

// CheckResult is the outcome of one QA pass.
type CheckResult struct {
	BrandCompliance bool `json:"brand_compliance"`
	ContentQuality  bool `json:"content_quality"`
	Accuracy        bool `json:"accuracy"`
	Completeness    bool `json:"completeness"`
	Formatting      bool `json:"formatting"`
	Classification  bool `json:"classification"`

	// Passed is the AND of the six checks. It is derived by Recompute and
	// never taken from the reasoning service.
	Passed bool `json:"passed"`

	// Issues lists specific defects, in the order found.
	Issues []string `json:"issues"`

	// Recommendations lists suggested improvements. It may be non-empty
	// when Passed is true.
	Recommendations []string `json:"recommendations"`

	// DefaultedChecks names checks the reasoning service omitted and that
	// were assumed to pass.
	DefaultedChecks []string `json:"defaulted_checks,omitempty"`
}

// Recompute sets Passed from the six checks.
func (r *CheckResult) Recompute() {
	r.Passed = r.BrandCompliance &&
		r.ContentQuality &&
		r.Accuracy &&
		r.Completeness &&
		r.Formatting &&
		r.Classification
}

// Checks returns the six checks keyed by name.
func (r *CheckResult) Checks() map[string]bool {
	return map[string]bool{
		CheckBrandCompliance: r.BrandCompliance,
		CheckContentQuality:  r.ContentQuality,
		CheckAccuracy:        r.Accuracy,
		CheckCompleteness:    r.Completeness,
		CheckFormatting:      r.Formatting,
		CheckClassification:  r.Classification,
	}
}

// FailedChecks returns the names of failing checks in reporting order.
func (r *CheckResult) FailedChecks() []string {
	checks := r.Checks()
	var failed []string
	for _, name := range CheckNames() {
		if !checks[name] {
			failed = append(failed, name)
		}
	}
	return failed
}

// Clone returns a deep copy.
func (r *CheckResult) Clone() *CheckResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Issues = append([]string{}, r.Issues...)
	c.Recommendations = append([]string{}, r.Recommendations...)
	c.DefaultedChecks = append([]string(nil), r.DefaultedChecks...)
	return &c
}

// Summary formats the result as a one-line description for logs and CLI output.
func (r *CheckResult) Summary() string {
	if r.Passed {
		return fmt.Sprintf("passed (%d issues, %d recommendations)", len(r.Issues), len(r.Recommendations))
	}
	return fmt.Sprintf("failed: %s (%d issues)", strings.Join(r.FailedChecks(), ", "), len(r.Issues))
}
