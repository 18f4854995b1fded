package dto

// Capability is a named permission asserted by the authenticated caller
// context. The session layer in front of this service authenticates the
// caller and attaches the set; this service only checks membership.
type Capability string

const (
	CapAdmin     Capability = "admin"
	CapCrew      Capability = "crew"
	CapAnonymous Capability = "anonymous"
)

// ParseCapability maps a wire string onto the closed enum. Unknown
// strings degrade to anonymous rather than inventing privileges.
func ParseCapability(s string) Capability {
	switch s {
	case "admin":
		return CapAdmin
	case "crew":
		return CapCrew
	default:
		return CapAnonymous
	}
}

// CapabilitySet is the set of capabilities attached to one caller.
type CapabilitySet map[Capability]struct{}

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether the capability is present in the set.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}
