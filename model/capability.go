// Package model resolves semantic capabilities to concrete model endpoints.
// Callers ask for "reviewing" or "writing" rather than a model name, and the
// registry answers with an ordered fallback chain.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilityReviewing is for document quality review. The QA step uses it.
	CapabilityReviewing Capability = "reviewing"

	// CapabilityWriting is for drafting and rewriting prose.
	CapabilityWriting Capability = "writing"

	// CapabilityFast is for short, cheap judgements.
	CapabilityFast Capability = "fast"
)

// RoleCapabilities maps pipeline roles to their default capability.
var RoleCapabilities = map[string]Capability{
	"qa-reviewer":      CapabilityReviewing,
	"document-drafter": CapabilityWriting,
	"brand-reviewer":   CapabilityFast,
}

// CapabilityForRole returns the default capability for a role, or
// CapabilityReviewing for unknown roles.
func CapabilityForRole(role string) Capability {
	if c, ok := RoleCapabilities[role]; ok {
		return c
	}
	return CapabilityReviewing
}

// Capabilities lists the known capabilities.
func Capabilities() []Capability {
	return []Capability{CapabilityReviewing, CapabilityWriting, CapabilityFast}
}

// IsValid checks if a capability is known.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityReviewing, CapabilityWriting, CapabilityFast:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for unknown values.
func ParseCapability(s string) Capability {
	if c := Capability(s); c.IsValid() {
		return c
	}
	return ""
}
