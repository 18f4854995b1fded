package models

// Profile is created 1:1 with a User. Owner is a back-reference to the
// user's id, not ownership; a user without a profile is tolerated.
type Profile struct {
	ID    string
	Owner string
}
