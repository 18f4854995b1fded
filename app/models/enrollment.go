package models

import "time"

// Method describes how an enrollment originated. Fixed at creation.
type Method string

const (
	MethodInvited  Method = "Invited"
	MethodEnrolled Method = "Enrolled"
)

// Status is the enrollment state. Open may move to Pending, Accepted or
// Denied; Pending may move to Accepted or Denied; Accepted and Denied
// are terminal.
type Status string

const (
	StatusOpen     Status = "Open"
	StatusPending  Status = "Pending"
	StatusAccepted Status = "Accepted"
	StatusDenied   Status = "Denied"
)

// ValidStatus reports whether s is a recognized enrollment status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusPending, StatusAccepted, StatusDenied:
		return true
	}
	return false
}

// Enrollment is a pending or resolved request for account creation,
// distinct from the User it may eventually produce. The Password field
// stages the plaintext self-enrollment password until acceptance; this
// mirrors the legacy data model and is a known security concern.
type Enrollment struct {
	ID        string
	Name      string
	Email     string
	Method    Method
	Status    Status
	Password  string
	CreatedAt time.Time
}

// SerializableFields returns the admin-facing view of the enrollment.
// The staged password never leaves the record.
func (e *Enrollment) SerializableFields() map[string]any {
	return map[string]any{
		"uuid":      e.ID,
		"name":      e.Name,
		"email":     e.Email,
		"method":    string(e.Method),
		"status":    string(e.Status),
		"timestamp": e.CreatedAt,
	}
}
