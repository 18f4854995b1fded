package services

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/crewnet/enrol-service/app/errors"
	"github.com/crewnet/enrol-service/app/hasher"
	"github.com/crewnet/enrol-service/app/metrics"
	"github.com/crewnet/enrol-service/app/models"
	"github.com/crewnet/enrol-service/app/notify"
	"github.com/crewnet/enrol-service/app/store"
)

// base carries the collaborators shared by the enrollment workflow and
// the admin operations, plus the provisioning steps both drive.
type base struct {
	runtime    *Runtime
	store      store.Storage
	dispatcher *notify.Dispatcher
	log        zerolog.Logger
}

// guard rejects every operation while the component is disabled (no
// system salt configured).
func (b *base) guard() *apperrors.AppError {
	if !b.runtime.Enabled() {
		return apperrors.NewConfiguration("enrollment is not available")
	}
	return nil
}

// acceptedRoles resolves the role set granted on acceptance for the
// given method: a comma-separated config value, entries trimmed.
func acceptedRoles(snap Snapshot, method models.Method) []string {
	configured := snap.Policy.GroupAcceptEnrolled
	if method == models.MethodInvited {
		configured = snap.Policy.GroupAcceptInvited
	}

	var roles []string
	for _, item := range strings.Split(configured, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			roles = append(roles, trimmed)
		}
	}
	return roles
}

// createUser persists a new User and, best effort, its Profile. Profile
// creation failure is logged and tolerated; the user stands either way.
func (b *base) createUser(ctx context.Context, snap Snapshot, name, password, mail string, method models.Method) (*models.User, *apperrors.AppError) {
	user := &models.User{
		ID:                  uuid.NewString(),
		Name:                name,
		Mail:                mail,
		PasswordHash:        hasher.Hash(password, snap.Salt),
		Roles:               acceptedRoles(snap, method),
		Active:              true,
		NeedsPasswordChange: method == models.MethodInvited,
		CreatedAt:           time.Now(),
	}

	if err := b.store.Users.Create(ctx, user); err != nil {
		b.log.Error().Err(err).Str("name", name).Msg("problem creating new user")
		return nil, apperrors.NewTransport("could not create user", err)
	}
	metrics.RecordUserCreated()

	profile := &models.Profile{
		ID:    uuid.NewString(),
		Owner: user.ID,
	}
	if err := b.store.Profiles.Create(ctx, profile); err != nil {
		// A user without a profile is tolerated elsewhere; do not roll
		// the user back.
		b.log.Error().Err(err).Str("user_id", user.ID).Msg("problem creating new profile")
	}

	b.log.Info().Str("name", name).Str("user_id", user.ID).Msg("user created")
	return user, nil
}

// mailContext builds the template substitution context for enrollment
// notifications.
func mailContext(snap Snapshot, enrollment *models.Enrollment) map[string]string {
	return map[string]string{
		"name":           enrollment.Name,
		"invitation_url": snap.InvitationURL,
		"node_name":      snap.NodeName,
		"node_url":       snap.NodeURL,
		"uuid":           enrollment.ID,
	}
}

// sendInvitation mails the invitation for an open enrollment. Honors the
// mail_send policy toggle; transport failures are logged here and
// reported to the caller, which decides whether they matter.
func (b *base) sendInvitation(ctx context.Context, snap Snapshot, enrollment *models.Enrollment) error {
	if !snap.Policy.MailSend {
		b.log.Info().Str("to", enrollment.Email).Msg("mail sending disabled, invitation skipped")
		return nil
	}

	err := b.dispatcher.Send(ctx, enrollment.Email,
		snap.Policy.InvitationSubject, snap.Policy.InvitationMail,
		mailContext(snap, enrollment))
	if err != nil {
		metrics.RecordMailFailed()
		return err
	}
	metrics.RecordMailSent()
	return nil
}

// sendAcceptance mails the acceptance notice. A non-empty password is
// appended as a postscript so invited users receive their generated
// one-time credential.
func (b *base) sendAcceptance(ctx context.Context, snap Snapshot, enrollment *models.Enrollment, password string) error {
	if !snap.Policy.MailSend {
		b.log.Info().Str("to", enrollment.Email).Msg("mail sending disabled, acceptance notice skipped")
		return nil
	}

	body := snap.Policy.AcceptanceMail
	if password != "" {
		body += "\n\nPS: Your new password is " + password + " - please change it after your first login!"
	}

	err := b.dispatcher.Send(ctx, enrollment.Email,
		snap.Policy.AcceptanceSubject, body,
		mailContext(snap, enrollment))
	if err != nil {
		metrics.RecordMailFailed()
		return err
	}
	metrics.RecordMailSent()
	return nil
}

const passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generatePassword produces the one-time password mailed to auto-accepted
// invitees. Ambiguous characters are left out so it survives retyping.
func generatePassword() (string, error) {
	const length = 12
	buf := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = passwordAlphabet[n.Int64()]
	}
	return string(buf), nil
}
