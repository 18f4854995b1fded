package config

// Policy holds the enrollment behavior switches and notification
// templates. It is loaded at startup and reloaded on a reconfigure
// signal; callers always work against a snapshot, never this package's
// globals.
type Policy struct {
	// MailSend generally toggles email sending (useful for debugging).
	MailSend bool
	// AllowRegistration offers self-service registration to new users.
	AllowRegistration bool
	// AutoAcceptInvited accepts invited users automatically after they verify.
	AutoAcceptInvited bool
	// AutoAcceptEnrolled accepts self-enrolled users automatically after they verify.
	AutoAcceptEnrolled bool
	// NoVerify skips verification and accepts all users immediately.
	NoVerify bool

	// Comma-separated role lists granted on acceptance, by method.
	GroupAcceptInvited  string
	GroupAcceptEnrolled string

	// Notification subject/body template pairs. Plain {{variable}}
	// substitution only.
	InvitationSubject string
	InvitationMail    string
	AcceptanceSubject string
	AcceptanceMail    string

	// Minimum lengths enforced on admin-created accounts.
	MinPasswordLength int
	MinUsernameLength int
}

const defaultInvitationMail = `Hello {{name}}!

You are being invited to join the crew at {{node_name}}!
Click this link to join the crew:
{{invitation_url}}{{uuid}}

Have fun,
the friendly robot of {{node_name}}
`

const defaultAcceptanceMail = `Hello {{name}}!
You can now use the node at {{node_name}}!
Click this link to login:
{{node_url}}

Have fun,
the friendly robot of {{node_name}}
`

// LoadPolicy reads the policy from the environment. Every key has a
// working default so a bare deployment behaves like a freshly installed
// node: registration open, invited users auto-accepted, self-enrolled
// users held for review.
func LoadPolicy() Policy {
	return Policy{
		MailSend:            GetBool("ENROL_MAIL_SEND", true),
		AllowRegistration:   GetBool("ENROL_ALLOW_REGISTRATION", true),
		AutoAcceptInvited:   GetBool("ENROL_AUTO_ACCEPT_INVITED", true),
		AutoAcceptEnrolled:  GetBool("ENROL_AUTO_ACCEPT_ENROLLED", false),
		NoVerify:            GetBool("ENROL_NO_VERIFY", false),
		GroupAcceptInvited:  GetString("ENROL_GROUP_ACCEPT_INVITED", "crew"),
		GroupAcceptEnrolled: GetString("ENROL_GROUP_ACCEPT_ENROLLED", "crew"),
		InvitationSubject:   GetString("ENROL_INVITATION_SUBJECT", "Invitation to join {{node_name}}"),
		InvitationMail:      GetString("ENROL_INVITATION_MAIL", defaultInvitationMail),
		AcceptanceSubject:   GetString("ENROL_ACCEPTANCE_SUBJECT", "Your account on {{node_name}} is now active"),
		AcceptanceMail:      GetString("ENROL_ACCEPTANCE_MAIL", defaultAcceptanceMail),
		MinPasswordLength:   GetInt("ENROL_MIN_PASSWORD_LENGTH", 8),
		MinUsernameLength:   GetInt("ENROL_MIN_USERNAME_LENGTH", 3),
	}
}
