// Package signoff produces the attestation record that closes a QA pass
// and keeps an append-only history of those records per document.
package signoff

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/qa"
)

var (
	// ErrQAGate is returned when final is requested for a document whose QA
	// pass failed and the tracker requires a pass for final.
	ErrQAGate = errors.New("qa must pass before final")

	// ErrNotFound is returned when a document has no sign-off history.
	ErrNotFound = errors.New("no sign-off recorded")
)

// Block is one sign-off. It is never modified after construction; a new QA
// pass produces a new Block.
type Block struct {
	// ID identifies this record in the history
	ID string `json:"id"`

	// DocumentID is the document the record attests to
	DocumentID string `json:"document_id"`

	PreparedBy string `json:"prepared_by"`
	ReviewedBy string `json:"reviewed_by"`

	// Date is the locale-formatted sign-off date
	Date string `json:"date"`

	Status         document.Status         `json:"status"`
	Classification document.Classification `json:"classification"`

	// QAResult is a copy of the verdict the block attests to
	QAResult *qa.CheckResult `json:"qa_result"`

	// Completed is true when the document reached final with this record
	Completed bool `json:"completed"`

	// Passed mirrors QAResult.Passed
	Passed bool `json:"passed"`

	// SignedAt is the capture time behind Date
	SignedAt time.Time `json:"signed_at"`
}

// Clone returns a deep copy so stores never share the embedded result.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	c := *b
	c.QAResult = b.QAResult.Clone()
	return &c
}

// Markdown renders the block as a sign-off section with its QA checks.
func (b *Block) Markdown() string {
	var sb strings.Builder

	sb.WriteString("## Sign-off\n\n")
	fields := [][2]string{
		{"Prepared By", b.PreparedBy},
		{"Reviewed By", b.ReviewedBy},
		{"Date", b.Date},
		{"Classification", b.Classification.Label()},
		{"Status", b.Status.Label()},
		{"QA", passLabel(b.Passed)},
	}
	for _, f := range fields {
		sb.WriteString(fmt.Sprintf("- **%s:** %s\n", f[0], f[1]))
	}

	if b.QAResult == nil {
		return sb.String()
	}

	sb.WriteString("\n### Quality Checks\n\n")
	sb.WriteString("| Check | Result |\n")
	sb.WriteString("|-------|--------|\n")
	checks := b.QAResult.Checks()
	for _, name := range qa.CheckNames() {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", checkLabel(name), passLabel(checks[name])))
	}

	if len(b.QAResult.Issues) > 0 {
		sb.WriteString("\n### Issues\n\n")
		for _, issue := range b.QAResult.Issues {
			sb.WriteString("- " + issue + "\n")
		}
	}
	if len(b.QAResult.Recommendations) > 0 {
		sb.WriteString("\n### Recommendations\n\n")
		for _, rec := range b.QAResult.Recommendations {
			sb.WriteString("- " + rec + "\n")
		}
	}
	return sb.String()
}

func passLabel(ok bool) string {
	if ok {
		return "Passed"
	}
	return "Failed"
}

// checkLabel turns "brand_compliance" into "Brand compliance".
func checkLabel(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
