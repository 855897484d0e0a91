package document

import (
	"fmt"
	"time"
)

// InitialVersion is the version of a freshly composed document.
const InitialVersion = "1.0"

// Fixed attestation identities stamped on composed documents and sign-offs.
const (
	DefaultPreparedBy = "Business Intelligence System"
	DefaultReviewedBy = "Quality Assurance Review"
)

// Metadata is the identity and lifecycle record of one generated document.
// ID, Type and CreatedAt never change after construction; once Status is
// final no field may change.
type Metadata struct {
	// ID is unique across the system, e.g. "BIZ-ES-MGS3K2A1-4F2A1"
	ID string `json:"id" yaml:"id"`

	// Title is the human-readable title
	Title string `json:"title" yaml:"title"`

	// Type selects the template and ID prefix
	Type Type `json:"type" yaml:"type"`

	// Version starts at "1.0"
	Version string `json:"version" yaml:"version"`

	// Classification is the confidentiality level
	Classification Classification `json:"classification" yaml:"classification"`

	// Status is the current lifecycle state
	Status Status `json:"status" yaml:"status"`

	// CreatedAt is when composition began
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// UpdatedAt is when the record last changed; never before CreatedAt
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewMetadata creates a draft record.
func NewMetadata(id, title string, t Type, c Classification, now time.Time) (*Metadata, error) {
	if id == "" {
		return nil, fmt.Errorf("document id is required")
	}
	if !t.IsValid() {
		return nil, fmt.Errorf("unknown document type %q", t)
	}
	if !c.IsValid() {
		return nil, fmt.Errorf("unknown classification %q", c)
	}
	return &Metadata{
		ID:             id,
		Title:          title,
		Type:           t,
		Version:        InitialVersion,
		Classification: c,
		Status:         StatusDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsFinal returns true if the record can no longer change.
func (m *Metadata) IsFinal() bool {
	return m.Status == StatusFinal
}

// Advance moves the record one step forward to target.
func (m *Metadata) Advance(target Status, now time.Time) error {
	if m.IsFinal() {
		return fmt.Errorf("advance %s to %s: %w", m.ID, target, ErrFinalized)
	}
	if !m.Status.CanTransitionTo(target) {
		return fmt.Errorf("advance %s from %s to %s: %w", m.ID, m.Status, target, ErrInvalidTransition)
	}
	m.Status = target
	m.touch(now)
	return nil
}

// AdvanceTo walks the lifecycle one step at a time until target is reached.
// Reaching the current status is a no-op; moving backwards is an error.
func (m *Metadata) AdvanceTo(target Status, now time.Time) error {
	if !target.IsValid() {
		return fmt.Errorf("advance %s to %q: %w", m.ID, target, ErrInvalidTransition)
	}
	if m.Status == target {
		return nil
	}
	if !m.Status.Reaches(target) {
		if m.IsFinal() {
			return fmt.Errorf("advance %s to %s: %w", m.ID, target, ErrFinalized)
		}
		return fmt.Errorf("advance %s from %s to %s: %w", m.ID, m.Status, target, ErrInvalidTransition)
	}
	for m.Status != target {
		next, _ := m.Status.Next()
		if err := m.Advance(next, now); err != nil {
			return err
		}
	}
	return nil
}

// SetTitle renames a non-final document.
func (m *Metadata) SetTitle(title string, now time.Time) error {
	if m.IsFinal() {
		return fmt.Errorf("set title on %s: %w", m.ID, ErrFinalized)
	}
	m.Title = title
	m.touch(now)
	return nil
}

// Clone returns an independent copy.
func (m *Metadata) Clone() *Metadata {
	c := *m
	return &c
}

// touch keeps UpdatedAt monotonic and never earlier than CreatedAt, even if
// the caller's clock steps backwards.
func (m *Metadata) touch(now time.Time) {
	if now.After(m.UpdatedAt) {
		m.UpdatedAt = now
	}
}
