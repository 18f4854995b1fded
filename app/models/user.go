package models

import "time"

type User struct {
	ID                  string
	Name                string
	Mail                string
	PasswordHash        string
	Roles               []string
	Active              bool
	NeedsPasswordChange bool
	CreatedAt           time.Time
}

// HasRole reports whether the role is currently assigned.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RemoveRole drops the role if present. Removing an absent role is a no-op.
func (u *User) RemoveRole(role string) {
	out := u.Roles[:0]
	for _, r := range u.Roles {
		if r != role {
			out = append(out, r)
		}
	}
	u.Roles = out
}
