package models

// SystemConfig is the node-wide configuration record. Exactly one row is
// active at a time; the salt it carries is required before any account
// operation may run.
type SystemConfig struct {
	ID       string
	Name     string
	Hostname string
	Salt     string
	Active   bool
}
